package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/metrics"
)

// ErrLoopStopped is returned for commands submitted after the loop exited.
var ErrLoopStopped = errors.DaemonError("daemon command loop is not running").Build()

type command struct {
	kind  string
	fn    func(ctx context.Context) error
	reply chan error
}

// CommandLoop serializes every mutation of the focus state on one goroutine.
// Browser events, UI messages and timer ticks are all enqueued as commands and
// executed in arrival order, so handlers never interleave.
type CommandLoop struct {
	queue    chan command
	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	recorder metrics.Recorder
}

// NewCommandLoop creates a loop with a queue of size entries.
func NewCommandLoop(size int, recorder metrics.Recorder) *CommandLoop {
	if size <= 0 {
		size = 256
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &CommandLoop{
		queue:    make(chan command, size),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
		recorder: recorder,
	}
}

// Run executes commands until ctx is canceled or Stop is called. Commands run
// with ctx, not with the context of the caller that submitted them.
func (l *CommandLoop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case cmd := <-l.queue:
			l.recorder.SetQueueDepth(len(l.queue))
			err := l.execute(ctx, cmd)
			if cmd.reply != nil {
				cmd.reply <- err
			}
		}
	}
}

// Stop ends Run after the current command.
func (l *CommandLoop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed when Run returns.
func (l *CommandLoop) Done() <-chan struct{} { return l.done }

func (l *CommandLoop) execute(ctx context.Context, cmd command) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Command panicked",
				slog.String("kind", cmd.kind),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = errors.InternalError("command panicked").
				WithContext("kind", cmd.kind).
				WithCause(fmt.Errorf("%v", r)).
				Build()
		}
		l.recorder.ObserveCommandDuration(cmd.kind, time.Since(start))
	}()
	return cmd.fn(ctx)
}

func (l *CommandLoop) enqueue(ctx context.Context, cmd command) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	case <-l.stop:
		return ErrLoopStopped
	default:
	}
	select {
	case l.queue <- cmd:
		l.recorder.SetQueueDepth(len(l.queue))
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues fn without waiting for it to run.
func (l *CommandLoop) Submit(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	return l.enqueue(ctx, command{kind: kind, fn: func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			slog.Warn("Command failed", slog.String("kind", kind), logfields.Error(err))
		}
		return nil
	}})
}

// Call enqueues fn and waits for its result, bounded by ctx.
func (l *CommandLoop) Call(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	if err := l.enqueue(ctx, command{kind: kind, fn: fn, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-l.done:
		// Run may have answered just before exiting.
		select {
		case err := <-reply:
			return err
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return errors.WrapError(ctx.Err(), errors.CategoryDaemon, "command timed out").
			WithContext("kind", kind).
			Retryable().
			Build()
	}
}
