package daemon

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/contextfocus/internal/config"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
)

// ApplyFunc receives each configuration that loaded and validated.
type ApplyFunc func(ctx context.Context, cfg *config.Config) error

// ConfigWatcher reloads the configuration file when it changes on disk.
// Bursts of events are collapsed into one reload after debounceTime, and a
// rewrite that leaves the bytes unchanged is ignored.
type ConfigWatcher struct {
	path         string
	apply        ApplyFunc
	fs           *fsnotify.Watcher
	debounceTime time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	workers  WorkerGroup

	mu   sync.Mutex
	last []byte
}

func NewConfigWatcher(configPath string, apply ApplyFunc) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve config path").
			WithContext("path", configPath).
			Build()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "create file watcher").Build()
	}
	cw := &ConfigWatcher{
		path:         abs,
		apply:        apply,
		fs:           fs,
		debounceTime: 2 * time.Second,
		stop:         make(chan struct{}),
	}
	cw.last, _ = os.ReadFile(abs)
	return cw, nil
}

// Start watches the parent directory; editors that save by rename would
// otherwise drop the watch on the file itself.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(cw.path)
	if err := cw.fs.Add(dir); err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "watch config directory").
			WithContext("dir", dir).
			Build()
	}
	slog.Info("Watching configuration", logfields.Path(cw.path))
	cw.workers.Go("config-watch", func() { cw.run(ctx) })
	return nil
}

func (cw *ConfigWatcher) Stop(ctx context.Context) error {
	cw.stopOnce.Do(func() {
		close(cw.stop)
		if err := cw.fs.Close(); err != nil {
			slog.Warn("Closing file watcher failed", logfields.Error(err))
		}
	})
	return cw.workers.StopAndWait(ctx)
}

func (cw *ConfigWatcher) run(ctx context.Context) {
	name := filepath.Base(cw.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stop:
			return
		case ev, ok := <-cw.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Remove) {
				slog.Warn("Config file removed; keeping current settings", logfields.Path(ev.Name))
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				slog.Debug("Config file changed", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
				if timer == nil {
					timer = time.NewTimer(cw.debounceTime)
				} else {
					timer.Reset(cw.debounceTime)
				}
				fire = timer.C
			}
		case err, ok := <-cw.fs.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		case <-fire:
			fire = nil
			if err := cw.performReload(ctx); err != nil {
				slog.Error("Configuration reload failed", logfields.Error(err))
			}
		}
	}
}

func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	raw, err := os.ReadFile(cw.path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "read config file").
			WithContext("path", cw.path).
			Build()
	}
	cw.mu.Lock()
	unchanged := bytes.Equal(raw, cw.last)
	cw.mu.Unlock()
	if unchanged {
		slog.Debug("Config file content unchanged", logfields.Path(cw.path))
		return nil
	}

	cfg, err := config.Load(cw.path)
	if err != nil {
		return err
	}
	if err := cw.apply(ctx, cfg); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "apply configuration").Build()
	}
	cw.mu.Lock()
	cw.last = raw
	cw.mu.Unlock()
	slog.Info("Configuration reloaded", logfields.Path(cw.path))
	return nil
}
