package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
)

// Job names.
const (
	JobMinuteAccrual  = "minute-accrual"
	JobHourlyRollover = "hourly-rollover"
)

// Scheduler wraps the gocron scheduler that drives the accrual timers.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create scheduler").Build()
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// Every schedules task at a fixed interval and returns the job id. Runs of the
// same job never overlap.
func (s *Scheduler) Every(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", errors.ConfigError("schedule interval must be positive").
			WithContext("job", name).
			Build()
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryDaemon, "failed to schedule job").
			WithContext("job", name).
			Build()
	}
	slog.Info("Scheduled job",
		logfields.ScheduleName(name),
		logfields.ScheduleID(job.ID().String()),
		slog.Duration("interval", interval))
	return job.ID().String(), nil
}

// JobCount returns the number of scheduled jobs.
func (s *Scheduler) JobCount() int {
	return len(s.scheduler.Jobs())
}

// tickTask adapts a loop command to a gocron task. Ticks that cannot be
// queued are dropped and logged; the next tick catches up.
func tickTask(loop *CommandLoop, name string, tick func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := loop.Submit(ctx, name, func(ctx context.Context) error {
			tick(ctx)
			return nil
		})
		if err != nil {
			slog.Warn("Tick dropped", logfields.ScheduleName(name), logfields.Error(err))
		}
	}
}
