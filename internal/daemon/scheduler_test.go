package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduler_Every(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.Every("test", 10*time.Second, func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.Equal(t, 1, s.JobCount())
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.Every("test", 0, func() {})
		require.Error(t, err)
		require.Zero(t, s.JobCount())
	})
}

func TestScheduler_TicksRunOnLoop(t *testing.T) {
	l := runLoop(t, 16)
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	var ticks atomic.Int32
	_, err = s.Every("fast", 20*time.Millisecond, tickTask(l, "fast", func(context.Context) {
		ticks.Add(1)
	}))
	require.NoError(t, err)
	s.Start()

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestTickTask_DropsWhenLoopStopped(t *testing.T) {
	l := NewCommandLoop(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()
	<-l.Done()

	ran := false
	tickTask(l, "late", func(context.Context) { ran = true })()
	require.False(t, ran)
}
