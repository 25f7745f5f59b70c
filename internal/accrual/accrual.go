// Package accrual turns the periodic minute and hourly ticks into focus time.
package accrual

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/metrics"
	"git.home.luguber.info/inful/contextfocus/internal/settings"
)

// Tick kinds, used as schedule names and metric labels.
const (
	KindMinute = "minute"
	KindHourly = "hourly"
)

// Session is the part of the focus machine that accrues time.
type Session interface {
	Tick() bool
	ResetToday()
	RefreshIndicator(ctx context.Context)
}

// StatsStore reads and updates persisted stats.
type StatsStore interface {
	Stats(ctx context.Context) (settings.Stats, error)
	MutateStats(ctx context.Context, fn func(*settings.Stats)) (settings.Stats, error)
}

// Accrual applies ticks to the session and the persisted totals.
type Accrual struct {
	session  Session
	stats    StatsStore
	recorder metrics.Recorder
	now      func() time.Time
}

// New creates an Accrual.
func New(session Session, stats StatsStore, recorder metrics.Recorder, now func() time.Time) *Accrual {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if now == nil {
		now = time.Now
	}
	return &Accrual{session: session, stats: stats, recorder: recorder, now: now}
}

// MinuteTick adds one minute to the session, today's counter and the
// persisted total while a session is active.
func (a *Accrual) MinuteTick(ctx context.Context) {
	a.recorder.IncTick(KindMinute)
	if !a.session.Tick() {
		return
	}
	if _, err := a.stats.MutateStats(ctx, func(st *settings.Stats) { st.TotalMinutes++ }); err != nil {
		slog.Warn("Failed to persist focus minute", logfields.Error(err))
	}
	a.session.RefreshIndicator(ctx)
}

// HourlyTick resets today's minutes once the calendar day moved past the last
// active date. It never ends a running session.
func (a *Accrual) HourlyTick(ctx context.Context) {
	a.recorder.IncTick(KindHourly)
	st, err := a.stats.Stats(ctx)
	if err != nil {
		slog.Warn("Skipping daily rollover check", logfields.Error(err))
		return
	}
	if st.ActiveOn(a.now()) {
		return
	}
	a.session.ResetToday()
	slog.Debug("Daily focus minutes reset", slog.String("date", settings.DateString(a.now())))
}
