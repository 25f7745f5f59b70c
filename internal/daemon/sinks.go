package daemon

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/bridge"
	"git.home.luguber.info/inful/contextfocus/internal/daemon/events"
	"git.home.luguber.info/inful/contextfocus/internal/eventstore"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/router"
)

// ReasonRestart closes a session left open in the history by a previous run.
const ReasonRestart = "daemon restart"

const sinkBuffer = 256

// EnvelopeBroadcaster sends frames to every connected shim.
type EnvelopeBroadcaster interface {
	Broadcast(env bridge.Envelope) int
}

// EventPublisher forwards bus events to an external transport.
type EventPublisher interface {
	Publish(evt events.Event) error
}

// HistoryRecorder turns focus transitions and redirects into stored session
// events. A session is keyed by the id of the event that started it.
type HistoryRecorder struct {
	emitter   *eventstore.Emitter
	sessionID string
}

// NewHistoryRecorder creates a recorder writing through emitter.
func NewHistoryRecorder(emitter *eventstore.Emitter) *HistoryRecorder {
	return &HistoryRecorder{emitter: emitter}
}

// CloseOrphan ends a session the projection still shows as active. The focus
// state is not persisted, so after a restart no session is running.
func (h *HistoryRecorder) CloseOrphan(ctx context.Context, at time.Time) error {
	proj := h.emitter.Projection()
	if proj == nil {
		return nil
	}
	open := proj.GetActiveSession()
	if open == nil {
		return nil
	}
	evt := eventstore.NewFocusDeactivated(open.SessionID, at, ReasonRestart, open.SessionMinutes)
	slog.Info("Closing session left open by previous run", slog.String("session_id", open.SessionID))
	return h.emitter.Emit(ctx, evt)
}

// Record stores one bus event. Unknown events are ignored.
func (h *HistoryRecorder) Record(ctx context.Context, evt events.Event) error {
	var stored *eventstore.Event
	switch e := evt.(type) {
	case events.FocusChanged:
		if e.Active {
			h.sessionID = e.ID
			stored = eventstore.NewFocusActivated(h.sessionID, e.At, eventstore.FocusActivatedMeta{
				Reason:    e.Reason,
				Mode:      e.Mode,
				Signal:    e.Signal,
				WorkTabID: e.WorkTabID,
			})
			break
		}
		if h.sessionID == "" {
			return nil
		}
		stored = eventstore.NewFocusDeactivated(h.sessionID, e.At, e.Reason, e.SessionMinutes)
		h.sessionID = ""
	case events.SiteBlocked:
		if h.sessionID == "" {
			return nil
		}
		stored = eventstore.NewSiteBlocked(h.sessionID, e.At, e.Site, e.Source, e.TabID)
	default:
		return nil
	}
	return h.emitter.Emit(ctx, stored)
}

// Run records events from ch until it closes.
func (h *HistoryRecorder) Run(ctx context.Context, ch <-chan events.Event) {
	for evt := range ch {
		if err := h.Record(ctx, evt); err != nil {
			slog.Warn("Failed to record history event",
				slog.String("event", evt.EventName()),
				logfields.Error(err))
		}
	}
}

// Broadcaster forwards bus events to the shims and, when configured, to NATS.
type Broadcaster struct {
	hub  EnvelopeBroadcaster
	nats EventPublisher
}

// NewBroadcaster creates a broadcaster. Either sink may be nil.
func NewBroadcaster(hub EnvelopeBroadcaster, nats EventPublisher) *Broadcaster {
	return &Broadcaster{hub: hub, nats: nats}
}

// Forward delivers one event.
func (b *Broadcaster) Forward(evt events.Event) {
	if fc, ok := evt.(events.FocusChanged); ok && b.hub != nil {
		b.hub.Broadcast(bridge.Envelope{
			Kind:  bridge.KindFocusChanged,
			Event: router.NewFocusChanged(fc.Active, fc.Reason),
		})
	}
	if b.nats != nil {
		if err := b.nats.Publish(evt); err != nil {
			slog.Warn("Failed to publish event to NATS",
				slog.String("event", evt.EventName()),
				logfields.Error(err))
		}
	}
}

// Run forwards events from ch until it closes.
func (b *Broadcaster) Run(ch <-chan events.Event) {
	for evt := range ch {
		b.Forward(evt)
	}
}
