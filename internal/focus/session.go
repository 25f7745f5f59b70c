// Package focus owns the process-wide focus session and its two guarded
// transitions, activate and deactivate.
//
// The Machine is driven from a single goroutine (the daemon's command loop);
// its mutex only protects snapshot reads from other goroutines.
package focus

import (
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

// Control records how a session was started.
type Control string

const (
	ControlAuto   Control = "auto"
	ControlManual Control = "manual"
)

// Transition reasons.
const (
	ReasonManualOverride = "manual override"
	ReasonManual         = "manual"
	ReasonForce          = "force"
	ReasonWorkTabClosed  = "work tab closed"
	ReasonModeOff        = "mode off"
	ReasonContentSignal  = "content signal"
)

// Session is the focus state. When Active is false, Reason, ActiveSince and
// WorkTabID are nil.
type Session struct {
	Active            bool       `json:"active"`
	Mode              Control    `json:"mode"`
	Reason            *string    `json:"reason"`
	ActiveSince       *time.Time `json:"activeSince"`
	SessionMinutes    int        `json:"sessionMinutes"`
	FocusMinutesToday int        `json:"focusMinutesToday"`
	WorkTabID         *tabs.ID   `json:"workTabId"`
}

// Clone returns a copy that shares no pointers with s.
func (s Session) Clone() Session {
	c := s
	if s.Reason != nil {
		r := *s.Reason
		c.Reason = &r
	}
	if s.ActiveSince != nil {
		t := *s.ActiveSince
		c.ActiveSince = &t
	}
	if s.WorkTabID != nil {
		id := *s.WorkTabID
		c.WorkTabID = &id
	}
	return c
}

// Uptime returns whole seconds since activation, or 0 when inactive.
func (s Session) Uptime(now time.Time) int64 {
	if !s.Active || s.ActiveSince == nil {
		return 0
	}
	d := now.Sub(*s.ActiveSince)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// ActivateOptions carry the optional context of an activation.
type ActivateOptions struct {
	Control   Control
	WorkTabID *tabs.ID
	// Signal names the classifier signal or trigger, used for metrics and history.
	Signal string
}
