package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/config"
	"git.home.luguber.info/inful/contextfocus/internal/daemon"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
)

const shutdownTimeout = 30 * time.Second

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Listen string `help:"Override server.listen"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadDaemonConfig(root.Config)
	if err != nil {
		return err
	}
	if d.Listen != "" {
		cfg.Server.Listen = d.Listen
	}

	g.Logger = config.NewLogger(os.Stderr, root.logging(cfg.Logging), g.Level)
	slog.SetDefault(g.Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunDaemon(ctx, cfg, daemon.Options{ConfigPath: root.Config, LevelVar: g.Level})
}

// loadDaemonConfig reads path, falling back to defaults when the file does not
// exist yet. The watcher still picks the file up once it is created.
func loadDaemonConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("No configuration file, using defaults", logfields.Path(path))
		return config.Load("")
	}
	return config.Load(path)
}

// RunDaemon runs a daemon until ctx is canceled, then stops it gracefully.
func RunDaemon(ctx context.Context, cfg *config.Config, opts daemon.Options) error {
	d, err := daemon.New(ctx, cfg, opts)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			_ = d.Stop(stopCtx)
			return err
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "stop daemon").Build()
	}
	return nil
}
