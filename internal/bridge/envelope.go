// Package bridge connects browser extension shims to the daemon over WebSocket.
//
// A shim forwards tab and navigation events and UI messages as JSON envelopes
// and executes the tab commands and badge updates the daemon sends back.
package bridge

import (
	"context"
	"encoding/json"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

// Kind discriminates envelopes.
type Kind string

// Inbound kinds.
const (
	KindTabActivated     Kind = "tab.activated"
	KindTabUpdated       Kind = "tab.updated"
	KindTabRemoved       Kind = "tab.removed"
	KindTabsSnapshot     Kind = "tabs.snapshot"
	KindNavigationBefore Kind = "navigation.before"
	KindMessage          Kind = "message"
)

// Outbound kinds.
const (
	KindTabNavigate  Kind = "tab.navigate"
	KindBadge        Kind = "badge"
	KindReply        Kind = "reply"
	KindFocusChanged Kind = "focus.changed"
	KindError        Kind = "error"
)

// Envelope is the single frame type in both directions. Only the fields of
// its kind are set.
type Envelope struct {
	Kind Kind `json:"kind"`
	// ID correlates a message with its reply.
	ID         string           `json:"id,omitempty"`
	TabID      *tabs.ID         `json:"tabId,omitempty"`
	Tab        *tabs.Tab        `json:"tab,omitempty"`
	Change     *tabs.Change     `json:"change,omitempty"`
	Tabs       []tabs.Tab       `json:"tabs,omitempty"`
	Navigation *tabs.Navigation `json:"navigation,omitempty"`
	Message    json.RawMessage  `json:"message,omitempty"`
	URL        string           `json:"url,omitempty"`
	Badge      *tabs.Badge      `json:"badge,omitempty"`
	Reply      any              `json:"reply,omitempty"`
	Event      any              `json:"event,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Decode parses an inbound envelope and checks the fields its kind needs.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errors.WrapError(err, errors.CategoryValidation, "malformed envelope").Build()
	}

	missing := func(field string) error {
		return errors.ValidationError("envelope field required").
			WithContext("kind", string(env.Kind)).
			WithContext("field", field).
			Build()
	}

	switch env.Kind {
	case KindTabActivated, KindTabRemoved:
		if env.TabID == nil {
			if env.Tab == nil {
				return Envelope{}, missing("tabId")
			}
			env.TabID = env.Tab.ID.Ptr()
		}
	case KindTabUpdated:
		if env.Tab == nil {
			return Envelope{}, missing("tab")
		}
		if env.TabID != nil && env.Tab.ID == 0 {
			env.Tab.ID = *env.TabID
		}
		if env.Change == nil {
			env.Change = &tabs.Change{}
		}
	case KindTabsSnapshot:
		if env.Tabs == nil {
			env.Tabs = []tabs.Tab{}
		}
	case KindNavigationBefore:
		if env.Navigation == nil {
			return Envelope{}, missing("navigation")
		}
	case KindMessage:
		if len(env.Message) == 0 {
			return Envelope{}, missing("message")
		}
	case "":
		return Envelope{}, errors.ValidationError("envelope kind is required").Build()
	default:
		return Envelope{}, errors.ValidationError("unknown envelope kind").
			WithContext("kind", string(env.Kind)).
			Build()
	}
	return env, nil
}

// Dispatch delivers a decoded tab or navigation envelope to h. Message
// envelopes are answered by the transport and are rejected here.
func Dispatch(ctx context.Context, h Handler, env Envelope) error {
	switch env.Kind {
	case KindTabActivated:
		return h.TabActivated(ctx, *env.TabID, env.Tab)
	case KindTabUpdated:
		return h.TabUpdated(ctx, *env.Tab, *env.Change)
	case KindTabRemoved:
		return h.TabRemoved(ctx, *env.TabID)
	case KindTabsSnapshot:
		return h.TabsSnapshot(ctx, env.Tabs)
	case KindNavigationBefore:
		return h.BeforeNavigate(ctx, *env.Navigation)
	default:
		return errors.ValidationError("envelope kind is not an event").
			WithContext("kind", string(env.Kind)).
			Build()
	}
}
