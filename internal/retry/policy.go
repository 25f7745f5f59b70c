// Package retry re-runs operations that fail with transient classified errors.
package retry

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
)

// Mode selects how the delay grows between attempts.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

// Policy is a value type; the zero Mode behaves as linear.
type Policy struct {
	Mode       Mode
	Initial    time.Duration
	Max        time.Duration
	MaxRetries int // retries after the first attempt
}

// DefaultPolicy suits CLI calls to a local daemon that may be mid-restart:
// 200ms, 400ms, 600ms.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeLinear, Initial: 200 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 3}
}

// Delay is the wait before retry n (1-based), capped at Max.
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	d := p.Initial
	switch p.Mode {
	case ModeFixed:
	case ModeExponential:
		for i := 1; i < n && d > 0 && d < p.Max; i++ {
			d *= 2
		}
	default:
		d *= time.Duration(n)
	}
	if p.Max > 0 && (d > p.Max || d <= 0) {
		return p.Max
	}
	return d
}

// Do calls fn until it succeeds or fails with an error that is not transient.
// RetryImmediate errors are retried without waiting. The last error is
// returned when retries run out or ctx ends during a wait.
func (p Policy) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	for retries := 0; ; retries++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		c, ok := errors.AsClassified(err)
		if !ok || !c.IsTransient() || retries >= p.MaxRetries {
			return err
		}

		wait := p.Delay(retries + 1)
		if c.RetryStrategy() == errors.RetryImmediate {
			wait = 0
		}
		slog.Debug("Retrying after transient error",
			slog.String("operation", name),
			slog.Int("retry", retries+1),
			slog.Duration("wait", wait),
			logfields.Error(err))

		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return err
			case <-t.C:
			}
		} else if ctx.Err() != nil {
			return err
		}
	}
}
