// Package httpserver serves the focus daemon's local HTTP API, the browser
// bridge WebSocket and the Prometheus endpoint on one listener.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	derrors "git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	handlers "git.home.luguber.info/inful/contextfocus/internal/server/handlers"
	smw "git.home.luguber.info/inful/contextfocus/internal/server/middleware"
)

// Routes.
const (
	PathMessages = "/api/messages"
	PathState    = "/api/state"
	PathHistory  = "/api/history"
	PathHealth   = "/healthz"
	PathMetrics  = "/metrics"
	PathBridge   = "/ws"
	PathBlocked  = "/blocked"
)

// Options carries the handlers owned by other packages.
type Options struct {
	// Bridge upgrades browser shim connections. Optional.
	Bridge http.Handler
	// Metrics exposes the Prometheus registry. Optional.
	Metrics http.Handler
}

// Server manages the daemon's HTTP listener.
type Server struct {
	listen       string
	opts         Options
	errorAdapter *derrors.HTTPErrorAdapter

	monitoringHandlers *handlers.MonitoringHandlers
	apiHandlers        *handlers.APIHandlers

	mchain func(http.Handler) http.Handler

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
}

// New constructs a server for listen ("host:port").
func New(listen string, runtime handlers.Runtime, opts Options) *Server {
	s := &Server{
		listen:       listen,
		opts:         opts,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
	}
	s.monitoringHandlers = handlers.NewMonitoringHandlers(runtime, s.errorAdapter)
	s.apiHandlers = handlers.NewAPIHandlers(runtime, s.errorAdapter)
	s.mchain = smw.Chain(slog.Default(), s.errorAdapter)
	return s
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathMessages, s.apiHandlers.HandleMessage)
	mux.HandleFunc(PathState, s.apiHandlers.HandleState)
	mux.HandleFunc(PathHistory, s.apiHandlers.HandleHistory)
	mux.HandleFunc(PathHealth, s.monitoringHandlers.HandleHealthCheck)
	mux.HandleFunc(PathBlocked, handlers.HandleBlockedPage)
	if s.opts.Metrics != nil {
		mux.Handle(PathMetrics, s.opts.Metrics)
	}
	if s.opts.Bridge != nil {
		mux.Handle(PathBridge, s.opts.Bridge)
	}
	return s.mchain(mux)
}

// Start binds the listener and serves in the background. Binding happens
// before Start returns so address conflicts fail startup.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return derrors.DaemonError("http server already started").Build()
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.listen)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "http listen failed").
			WithContext("listen", s.listen).
			UserAction().
			Build()
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.addr = ln.Addr()

	srv := s.srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", logfields.Error(err))
		}
	}()
	slog.Info("HTTP server started", slog.String("addr", s.addr.String()))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop gracefully shuts the server down. Hijacked WebSocket connections are
// not tracked by Shutdown and must be closed by their owner.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return derrors.WrapError(err, derrors.CategoryDaemon, "http server shutdown").Build()
	}
	slog.Info("HTTP server stopped")
	return nil
}
