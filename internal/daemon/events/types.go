package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every bus event so sinks can subscribe to all of them.
type Event interface {
	EventID() string
	EventName() string
	OccurredAt() time.Time
}

// Event names, also used as eventstore types and NATS headers.
const (
	NameFocusActivated   = "FocusActivated"
	NameFocusDeactivated = "FocusDeactivated"
	NameSiteBlocked      = "SiteBlocked"
)

// FocusChanged is published on every session transition.
type FocusChanged struct {
	ID             string    `json:"id"`
	Active         bool      `json:"active"`
	Reason         string    `json:"reason"`
	Mode           string    `json:"mode"`
	Signal         string    `json:"signal,omitempty"`
	WorkTabID      *int      `json:"workTabId,omitempty"`
	SessionMinutes int       `json:"sessionMinutes"`
	At             time.Time `json:"at"`
}

func (e FocusChanged) EventID() string       { return e.ID }
func (e FocusChanged) OccurredAt() time.Time { return e.At }
func (e FocusChanged) EventName() string {
	if e.Active {
		return NameFocusActivated
	}
	return NameFocusDeactivated
}

// SiteBlocked is published when a tab is redirected to the blocked page.
type SiteBlocked struct {
	ID     string    `json:"id"`
	TabID  int       `json:"tabId"`
	Site   string    `json:"site"`
	URL    string    `json:"url"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

func (e SiteBlocked) EventID() string       { return e.ID }
func (e SiteBlocked) EventName() string     { return NameSiteBlocked }
func (e SiteBlocked) OccurredAt() time.Time { return e.At }

// Redirect sources.
const (
	SourceNavigation = "navigation"
	SourceSweep      = "sweep"
)

// NewID returns a fresh event id.
func NewID() string {
	return uuid.NewString()
}
