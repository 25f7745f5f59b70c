// Package router answers the request/response messages UI surfaces send to the
// focus daemon. Dispatch must run on the daemon's command loop.
package router

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/focus"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/metrics"
	"git.home.luguber.info/inful/contextfocus/internal/monitor"
	"git.home.luguber.info/inful/contextfocus/internal/settings"
)

// Machine is the focus state the router reads and toggles.
type Machine interface {
	Snapshot() focus.Session
	Toggle(ctx context.Context, strict bool) focus.ToggleResult
	ForceOff(ctx context.Context) bool
}

// Monitor receives content signals and mode changes.
type Monitor interface {
	OnContentSignal(ctx context.Context, sig monitor.ContentSignal) bool
	OnModeChanged(ctx context.Context, from, to settings.Mode)
}

// Settings is the persisted settings and stats service.
type Settings interface {
	Settings(ctx context.Context) (settings.Settings, error)
	Stats(ctx context.Context) (settings.Stats, error)
	Update(ctx context.Context, patch settings.Patch) (settings.Settings, settings.Settings, error)
	ResetStats(ctx context.Context) error
	RestoreDefaultBlocklist(ctx context.Context) (settings.Settings, error)
}

// Router dispatches messages by type.
type Router struct {
	machine  Machine
	monitor  Monitor
	settings Settings
	recorder metrics.Recorder
	now      func() time.Time
}

// New creates a Router.
func New(machine Machine, mon Monitor, s Settings, recorder metrics.Recorder, now func() time.Time) *Router {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if now == nil {
		now = time.Now
	}
	return &Router{machine: machine, monitor: mon, settings: s, recorder: recorder, now: now}
}

// Dispatch handles one message and returns its response value.
func (r *Router) Dispatch(ctx context.Context, req Request) (any, error) {
	resp, err := r.dispatch(ctx, req)
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		slog.Warn("Message failed", logfields.MessageType(string(req.Type)), logfields.Error(err))
	default:
		if t, ok := resp.(focus.ToggleResult); ok && t.Refused {
			outcome = metrics.OutcomeRefused
		}
	}
	r.recorder.IncMessage(string(req.Type), outcome)
	return resp, err
}

func (r *Router) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Type {
	case TypeGetState:
		return r.state(ctx)

	case TypeToggleFocus:
		s, err := r.settings.Settings(ctx)
		if err != nil {
			return nil, err
		}
		return r.machine.Toggle(ctx, s.StrictMode), nil

	case TypeForceOff:
		r.machine.ForceOff(ctx)
		return OKResponse{OK: true}, nil

	case TypeUpdateSettings:
		if req.Settings == nil || req.Settings.Empty() {
			return OKResponse{OK: true}, nil
		}
		before, after, err := r.settings.Update(ctx, *req.Settings)
		if err != nil {
			return nil, err
		}
		if before.Mode != after.Mode {
			r.monitor.OnModeChanged(ctx, before.Mode, after.Mode)
		}
		return OKResponse{OK: true}, nil

	case TypeWorkContextDetected:
		r.monitor.OnContentSignal(ctx, monitor.ContentSignal{Label: req.Label, URL: req.URL, Title: req.Title})
		return OKResponse{OK: true}, nil

	case TypeGetBlockedList:
		s, err := r.settings.Settings(ctx)
		if err != nil {
			return nil, err
		}
		return SitesResponse{Sites: s.BlockedSites}, nil

	case TypeResetStats:
		if err := r.settings.ResetStats(ctx); err != nil {
			return nil, err
		}
		return OKResponse{OK: true}, nil

	case TypeRestoreDefaults:
		if _, err := r.settings.RestoreDefaultBlocklist(ctx); err != nil {
			return nil, err
		}
		return OKResponse{OK: true}, nil

	default:
		return nil, errors.ValidationError("unknown message type").
			WithContext("type", string(req.Type)).
			Build()
	}
}

func (r *Router) state(ctx context.Context) (StateResponse, error) {
	s, err := r.settings.Settings(ctx)
	if err != nil {
		return StateResponse{}, err
	}
	st, err := r.settings.Stats(ctx)
	if err != nil {
		return StateResponse{}, err
	}
	snap := r.machine.Snapshot()
	return StateResponse{
		Session:  snap,
		Settings: s,
		Stats:    st,
		Uptime:   snap.Uptime(r.now()),
	}, nil
}
