package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

func TestWorkerGroup_WaitsForWorkers(t *testing.T) {
	var g WorkerGroup
	release := make(chan struct{})
	require.True(t, g.Go("a", func() { <-release }))
	require.True(t, g.Go("b", func() { <-release }))
	assert.Equal(t, []string{"a", "b"}, g.Running())

	close(release)
	require.NoError(t, g.StopAndWait(t.Context()))
	assert.Empty(t, g.Running())
	assert.False(t, g.Go("late", func() {}))
}

func TestWorkerGroup_TimeoutNamesPendingWorkers(t *testing.T) {
	var g WorkerGroup
	release := make(chan struct{})
	defer close(release)
	require.True(t, g.Go("stuck", func() { <-release }))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	err := g.StopAndWait(ctx)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryDaemon))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerGroup_RecoversPanics(t *testing.T) {
	var g WorkerGroup
	require.True(t, g.Go("boom", func() { panic("bad") }))
	require.NoError(t, g.StopAndWait(t.Context()))
	assert.False(t, g.Go("nil", nil))
}
