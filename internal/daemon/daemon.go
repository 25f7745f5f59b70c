// Package daemon assembles the focus daemon: storage, the focus state
// machine, the tab monitor, the message router and the accrual timers, driven
// by browser shims over WebSocket or NATS and served over HTTP.
package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/contextfocus/internal/accrual"
	"git.home.luguber.info/inful/contextfocus/internal/bridge"
	"git.home.luguber.info/inful/contextfocus/internal/config"
	"git.home.luguber.info/inful/contextfocus/internal/daemon/events"
	"git.home.luguber.info/inful/contextfocus/internal/eventstore"
	"git.home.luguber.info/inful/contextfocus/internal/focus"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/kvstore"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/metrics"
	"git.home.luguber.info/inful/contextfocus/internal/monitor"
	"git.home.luguber.info/inful/contextfocus/internal/natsbus"
	"git.home.luguber.info/inful/contextfocus/internal/router"
	"git.home.luguber.info/inful/contextfocus/internal/server/httpserver"
	"git.home.luguber.info/inful/contextfocus/internal/server/responses"
	"git.home.luguber.info/inful/contextfocus/internal/settings"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

const (
	commandQueueSize = 256
	requestTimeout   = 10 * time.Second
)

// Options tune a Daemon beyond its configuration file.
type Options struct {
	// ConfigPath enables hot reload of the file at this path.
	ConfigPath string
	// LevelVar receives logging.level on reload.
	LevelVar *slog.LevelVar
	// Now overrides time.Now for every component.
	Now func() time.Time
}

// Daemon owns every long-lived component.
type Daemon struct {
	cfg       *config.Config
	opts      Options
	status    statusCell
	startTime time.Time
	mu        sync.Mutex
	stopChan  chan struct{}
	stopOnce  sync.Once

	registry *prom.Registry
	recorder metrics.Recorder

	store      kvstore.Store
	settings   *settings.Service
	bus        *events.Bus
	tabs       *tabs.Registry
	hub        *bridge.Hub
	nats       *natsbus.Client
	machine    *focus.Machine
	monitor    *monitor.Monitor
	router     *router.Router
	accrual    *accrual.Accrual
	loop       *CommandLoop
	scheduler  *Scheduler
	watcher    *ConfigWatcher
	eventStore eventstore.Store
	emitter    *eventstore.Emitter
	history    *HistoryRecorder
	httpServer *httpserver.Server

	workers WorkerGroup
}

// New wires a daemon from cfg. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LevelVar == nil {
		opts.LevelVar = new(slog.LevelVar)
	}

	d := &Daemon{
		cfg:      cfg,
		opts:     opts,
		stopChan: make(chan struct{}),
		registry: metrics.NewRegistry(),
		bus:      events.NewBus(),
		tabs:     tabs.NewRegistry(),
	}
	d.recorder = metrics.NewPrometheusRecorder(d.registry)

	ok := false
	defer func() {
		if !ok {
			d.closeResources()
		}
	}()

	if cfg.NATS.Enabled() {
		nc, err := natsbus.Connect(natsbus.Config{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			KVBucket:      cfg.NATS.KVBucket,
		})
		if err != nil {
			return nil, err
		}
		d.nats = nc
	}

	if err := d.openStore(ctx); err != nil {
		return nil, err
	}
	d.settings = settings.NewService(d.store, settings.WithClock(opts.Now))
	if err := d.settings.EnsureSeeded(ctx); err != nil {
		return nil, err
	}

	d.hub = bridge.NewHub(d,
		bridge.WithRecorder(d.recorder),
		bridge.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		bridge.WithRequestTimeout(requestTimeout))

	commander := tabs.Fanout{d.hub}
	if d.nats != nil {
		commander = append(commander, d.nats)
	}
	driver := tabs.NewBrowserDriver(d.tabs, commander)

	d.machine = focus.NewMachine(d.settings,
		focus.WithClock(opts.Now),
		focus.WithRecorder(d.recorder),
		focus.WithIndicator(commander),
		focus.WithPublisher(d.bus))
	d.monitor = monitor.New(d.machine, driver, d.settings,
		monitor.WithPublisher(d.bus),
		monitor.WithRecorder(d.recorder),
		monitor.WithClock(opts.Now))
	d.monitor.SetBlockedPage(cfg.BlockedPageURL)
	d.machine.SetSweeper(d.monitor)
	d.router = router.New(d.machine, d.monitor, d.settings, d.recorder, opts.Now)
	d.accrual = accrual.New(d.machine, d.settings, d.recorder, opts.Now)
	d.loop = NewCommandLoop(commandQueueSize, d.recorder)

	if err := d.openHistory(ctx); err != nil {
		return nil, err
	}

	scheduler, err := NewScheduler()
	if err != nil {
		return nil, err
	}
	d.scheduler = scheduler
	if _, err := scheduler.Every(JobMinuteAccrual, cfg.Schedule.AccrualInterval,
		tickTask(d.loop, JobMinuteAccrual, d.accrual.MinuteTick)); err != nil {
		return nil, err
	}
	if _, err := scheduler.Every(JobHourlyRollover, cfg.Schedule.RolloverInterval,
		tickTask(d.loop, JobHourlyRollover, d.accrual.HourlyTick)); err != nil {
		return nil, err
	}

	if opts.ConfigPath != "" {
		watcher, err := NewConfigWatcher(opts.ConfigPath, d.ReloadConfig)
		if err != nil {
			return nil, err
		}
		d.watcher = watcher
	}

	d.httpServer = httpserver.New(cfg.Server.Listen, d, httpserver.Options{
		Bridge:  d.hub,
		Metrics: metrics.HTTPHandler(d.registry),
	})

	ok = true
	return d, nil
}

func (d *Daemon) openStore(ctx context.Context) error {
	sc := d.cfg.Storage
	if sc.Backend == kvstore.BackendNATS {
		if d.nats == nil {
			return errors.ConfigError("nats storage backend requires nats.url").
				WithContext("field", "nats.url").
				UserAction().
				Build()
		}
		bucket, err := d.nats.KeyValue(ctx)
		if err != nil {
			return err
		}
		store, err := kvstore.Open(sc.Backend, "", bucket)
		if err != nil {
			return err
		}
		d.store = store
		return nil
	}
	store, err := kvstore.Open(sc.Backend, sc.Path, nil)
	if err != nil {
		return err
	}
	d.store = store
	return nil
}

func (d *Daemon) openHistory(ctx context.Context) error {
	h := d.cfg.History
	if !h.Enabled {
		return nil
	}
	if h.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(h.Path), 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryEventStore, "create history directory").
				WithContext("path", h.Path).
				Build()
		}
	}
	store, err := eventstore.NewSQLiteStore(h.Path)
	if err != nil {
		return err
	}
	d.eventStore = store

	projection := eventstore.NewSessionHistoryProjection(store, h.Limit)
	if err := projection.Rebuild(ctx); err != nil {
		return err
	}
	d.emitter = eventstore.NewEmitter(store, projection)
	d.history = NewHistoryRecorder(d.emitter)
	return d.history.CloseOrphan(ctx, d.opts.Now())
}

// Start starts every component and blocks until ctx is canceled or Stop is
// called.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if !d.status.transition(StatusStopped, StatusStarting) {
		d.mu.Unlock()
		return errors.DaemonError("daemon is not in stopped state").
			WithContext("status", d.GetStatus().String()).
			Build()
	}
	d.startTime = d.opts.Now()
	slog.Info("Starting focus daemon", slog.String("listen", d.cfg.Server.Listen))

	// Sinks subscribe before the loop runs so no transition is missed.
	d.startSinks()
	d.workers.Go("command-loop", func() { d.loop.Run(ctx) })

	if err := d.httpServer.Start(ctx); err != nil {
		d.status.Store(StatusError)
		d.mu.Unlock()
		return err
	}
	if d.nats != nil {
		if err := d.nats.Serve(d); err != nil {
			d.status.Store(StatusError)
			d.mu.Unlock()
			return err
		}
	}

	refreshCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	if err := d.loop.Call(refreshCtx, "indicator.refresh", func(ctx context.Context) error {
		d.machine.RefreshIndicator(ctx)
		return nil
	}); err != nil {
		slog.Warn("Initial indicator refresh failed", logfields.Error(err))
	}
	cancel()

	d.scheduler.Start()
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
		} else {
			slog.Info("Config watcher started")
		}
	}

	d.status.Store(StatusRunning)
	slog.Info("Focus daemon started",
		slog.String("addr", d.httpServer.Addr().String()),
		slog.String("storage", string(d.cfg.Storage.Backend)),
		slog.Bool("nats", d.nats != nil),
		slog.Bool("history", d.emitter != nil))

	// Release lock before blocking so status reads are not held up.
	d.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-d.stopChan:
	}
	slog.Info("Main loop exited, daemon stopping")
	return nil
}

func (d *Daemon) startSinks() {
	var pub EventPublisher
	if d.nats != nil {
		pub = d.nats
	}
	broadcaster := NewBroadcaster(d.hub, pub)
	bch, bunsub := events.Subscribe[events.Event](d.bus, sinkBuffer)
	d.workers.Go("broadcast-sink", func() {
		defer bunsub()
		broadcaster.Run(bch)
	})

	if d.history != nil {
		hch, hunsub := events.Subscribe[events.Event](d.bus, sinkBuffer)
		d.workers.Go("history-sink", func() {
			defer hunsub()
			d.history.Run(context.Background(), hch)
		})
	}
}

// Stop gracefully shuts down the daemon
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	currentStatus := d.GetStatus()
	if currentStatus == StatusStopped || currentStatus == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	slog.Info("Stopping focus daemon")

	d.stopOnce.Do(func() { close(d.stopChan) })

	// Stop components in reverse order
	if d.watcher != nil {
		if err := d.watcher.Stop(ctx); err != nil {
			slog.Error("Failed to stop config watcher", logfields.Error(err))
		}
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			slog.Error("Failed to stop scheduler", logfields.Error(err))
		}
	}
	if d.httpServer != nil {
		if err := d.httpServer.Stop(ctx); err != nil {
			slog.Error("Failed to stop HTTP server", logfields.Error(err))
		}
	}
	d.hub.Close()

	d.loop.Stop()
	// Closing the bus ends the sink workers once they drained their queues.
	d.bus.Close()
	if err := d.workers.StopAndWait(ctx); err != nil {
		slog.Warn("Workers did not stop in time", logfields.Error(err))
	}

	d.closeResources()
	d.status.Store(StatusStopped)
	slog.Info("Focus daemon stopped", slog.Duration("uptime", d.opts.Now().Sub(d.startTime)))
	return nil
}

func (d *Daemon) closeResources() {
	if d.nats != nil {
		if err := d.nats.Close(); err != nil {
			slog.Error("Failed to close NATS connection", logfields.Error(err))
		}
	}
	if d.eventStore != nil {
		if err := d.eventStore.Close(); err != nil {
			slog.Error("Failed to close event store", logfields.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Error("Failed to close settings store", logfields.Error(err))
		}
	}
}

func (d *Daemon) GetStatus() Status { return d.status.Load() }

// GetStartTime returns when Start was last called.
func (d *Daemon) GetStartTime() time.Time {
	return d.startTime
}

// Addr returns the HTTP listener address once started.
func (d *Daemon) Addr() string {
	if a := d.httpServer.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// History returns the most recent sessions, newest first. limit <= 0 returns
// every retained session.
func (d *Daemon) History(limit int) responses.HistoryResponse {
	proj := d.emitter.Projection()
	if proj == nil {
		return responses.HistoryResponse{Sessions: []*eventstore.SessionSummary{}}
	}
	resp := responses.HistoryResponse{Sessions: proj.GetHistory(limit)}
	if resp.Sessions == nil {
		resp.Sessions = []*eventstore.SessionSummary{}
	}
	if t := proj.LastSyncTime(); !t.IsZero() {
		resp.LastSync = &t
	}
	return resp
}

// ReloadConfig applies the settings that can change without a restart:
// logging.level and blocked_page_url. Other changes are logged and ignored.
func (d *Daemon) ReloadConfig(ctx context.Context, next *config.Config) error {
	d.opts.LevelVar.Set(next.Logging.Level.SlogLevel())

	if next.Server.Listen != d.cfg.Server.Listen ||
		next.Storage != d.cfg.Storage ||
		next.NATS != d.cfg.NATS ||
		next.History.Enabled != d.cfg.History.Enabled ||
		next.History.Path != d.cfg.History.Path {
		slog.Warn("Configuration change requires a restart; only logging and blocked page were applied")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	page := next.BlockedPageURL
	return d.loop.Call(ctx, "config.reload", func(context.Context) error {
		d.monitor.SetBlockedPage(page)
		slog.Info("Applied configuration",
			slog.String("level", string(next.Logging.Level)),
			slog.String("blocked_page", d.monitor.BlockedPage()))
		return nil
	})
}
