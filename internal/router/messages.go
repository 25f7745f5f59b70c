package router

import (
	"encoding/json"

	"git.home.luguber.info/inful/contextfocus/internal/focus"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/settings"
)

// Type discriminates messages.
type Type string

const (
	TypeGetState            Type = "GET_STATE"
	TypeToggleFocus         Type = "TOGGLE_FOCUS"
	TypeForceOff            Type = "FORCE_OFF"
	TypeUpdateSettings      Type = "UPDATE_SETTINGS"
	TypeWorkContextDetected Type = "WORK_CONTEXT_DETECTED"
	TypeGetBlockedList      Type = "GET_BLOCKED_LIST"
	TypeResetStats          Type = "RESET_STATS"
	TypeRestoreDefaults     Type = "RESTORE_DEFAULTS"

	// TypeFocusChanged is outbound only.
	TypeFocusChanged Type = "FOCUS_CHANGED"
)

// Request is an inbound message. Only the fields of its type are read.
type Request struct {
	Type     Type            `json:"type"`
	Settings *settings.Patch `json:"settings,omitempty"`
	Label    string          `json:"label,omitempty"`
	URL      string          `json:"url,omitempty"`
	Title    string          `json:"title,omitempty"`
}

// Decode parses a JSON message.
func Decode(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, errors.WrapError(err, errors.CategoryValidation, "malformed message").Build()
	}
	if req.Type == "" {
		return Request{}, errors.ValidationError("message type is required").Build()
	}
	return req, nil
}

// StateResponse answers GET_STATE.
type StateResponse struct {
	focus.Session
	Settings settings.Settings `json:"settings"`
	Stats    settings.Stats    `json:"stats"`
	Uptime   int64             `json:"uptime"`
}

// OKResponse acknowledges a command.
type OKResponse struct {
	OK bool `json:"ok"`
}

// SitesResponse answers GET_BLOCKED_LIST.
type SitesResponse struct {
	Sites []string `json:"sites"`
}

// FocusChangedMessage is the outbound broadcast on every transition.
type FocusChangedMessage struct {
	Type   Type   `json:"type"`
	Active bool   `json:"active"`
	Reason string `json:"reason"`
}

// NewFocusChanged builds the broadcast message.
func NewFocusChanged(active bool, reason string) FocusChangedMessage {
	return FocusChangedMessage{Type: TypeFocusChanged, Active: active, Reason: reason}
}
