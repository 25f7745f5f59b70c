package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

func busy() error { return errors.DaemonError("busy").Retryable().Build() }

func TestDelay(t *testing.T) {
	ms := time.Millisecond
	linear := Policy{Mode: ModeLinear, Initial: 100 * ms, Max: 250 * ms}
	exp := Policy{Mode: ModeExponential, Initial: 50 * ms, Max: 160 * ms}
	fixed := Policy{Mode: ModeFixed, Initial: 100 * ms, Max: 500 * ms}

	tests := []struct {
		name   string
		policy Policy
		n      int
		want   time.Duration
	}{
		{"zero retry", DefaultPolicy(), 0, 0},
		{"default second", DefaultPolicy(), 2, 400 * ms},
		{"fixed", fixed, 3, 100 * ms},
		{"linear 2", linear, 2, 200 * ms},
		{"linear capped", linear, 3, 250 * ms},
		{"zero mode is linear", Policy{Initial: 10 * ms, Max: time.Second}, 3, 30 * ms},
		{"exp 1", exp, 1, 50 * ms},
		{"exp 2", exp, 2, 100 * ms},
		{"exp capped", exp, 3, 160 * ms},
		{"exp huge", exp, 500, 160 * ms},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Delay(tt.n))
		})
	}
}

func TestDo(t *testing.T) {
	p := Policy{Mode: ModeFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		err := p.Do(t.Context(), "op", func(context.Context) error {
			calls++
			if calls < 3 {
				return busy()
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := p.Do(t.Context(), "op", func(context.Context) error {
			calls++
			return busy()
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry plain or user-action errors", func(t *testing.T) {
		for _, e := range []error{stderrors.New("plain"), errors.RefusedError("strict").Build()} {
			calls := 0
			err := p.Do(t.Context(), "op", func(context.Context) error {
				calls++
				return e
			})
			assert.ErrorIs(t, err, e)
			assert.Equal(t, 1, calls)
		}
	})

	t.Run("immediate retries skip the wait", func(t *testing.T) {
		slow := Policy{Mode: ModeFixed, Initial: time.Hour, Max: time.Hour, MaxRetries: 1}
		calls := 0
		err := slow.Do(t.Context(), "op", func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.TransportError("reset").WithRetry(errors.RetryImmediate).Build()
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		slow := Policy{Mode: ModeFixed, Initial: time.Hour, Max: time.Hour, MaxRetries: 5}
		calls := 0
		err := slow.Do(ctx, "op", func(context.Context) error {
			calls++
			return busy()
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
