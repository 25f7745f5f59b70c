package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/config"
)

func TestConfigWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contextfocus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nlogging:\n  level: info\n"), 0o600))

	applied := make(chan *config.Config, 4)
	cw, err := NewConfigWatcher(path, func(_ context.Context, cfg *config.Config) error {
		applied <- cfg
		return nil
	})
	require.NoError(t, err)
	cw.debounceTime = 20 * time.Millisecond

	require.NoError(t, cw.Start(t.Context()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = cw.Stop(ctx)
	})

	// Sibling files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nlogging:\n  level: debug\nblocked_page_url: https://focus.example/blocked\n"), 0o600))

	select {
	case cfg := <-applied:
		assert.Equal(t, config.LogLevelDebug, cfg.Logging.Level)
		assert.Equal(t, "https://focus.example/blocked", cfg.BlockedPageURL)
	case <-time.After(3 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
}

func TestConfigWatcher_InvalidFileIsNotApplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contextfocus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\n"), 0o600))

	cw, err := NewConfigWatcher(path, func(context.Context, *config.Config) error {
		t.Error("invalid configuration must not be applied")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nstorage:\n  backend: floppy\n"), 0o600))
	require.Error(t, cw.performReload(t.Context()))
}

func TestConfigWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	cw, err := NewConfigWatcher(path, func(context.Context, *config.Config) error { return nil })
	require.NoError(t, err)
	require.NoError(t, cw.Start(t.Context()))
	require.NoError(t, cw.Stop(t.Context()))
	require.NoError(t, cw.Stop(t.Context()))
}

func TestConfigWatcher_UnchangedContentSkipsApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contextfocus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\n"), 0o600))

	calls := 0
	cw, err := NewConfigWatcher(path, func(context.Context, *config.Config) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, cw.performReload(t.Context()))
	assert.Zero(t, calls)

	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nlogging:\n  level: warn\n"), 0o600))
	require.NoError(t, cw.performReload(t.Context()))
	require.NoError(t, cw.performReload(t.Context()))
	assert.Equal(t, 1, calls)
}
