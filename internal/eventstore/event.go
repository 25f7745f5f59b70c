package eventstore

import (
	"encoding/json"
	"time"
)

// Stored event types.
const (
	TypeFocusActivated   = "FocusActivated"
	TypeFocusDeactivated = "FocusDeactivated"
	TypeSiteBlocked      = "SiteBlocked"
)

// Event is one row of the session history. Seq is assigned by the store and
// is zero until the event has been appended.
type Event struct {
	Seq       int64
	SessionID string
	Type      string
	At        time.Time
	Payload   json.RawMessage
	Tags      map[string]string
}

// FocusActivatedMeta describes how a session started.
type FocusActivatedMeta struct {
	Reason    string `json:"reason"`
	Mode      string `json:"mode"`
	Signal    string `json:"signal,omitempty"`
	WorkTabID *int   `json:"work_tab_id,omitempty"`
}

// FocusDeactivatedData closes a session.
type FocusDeactivatedData struct {
	Reason         string `json:"reason"`
	SessionMinutes int    `json:"session_minutes"`
}

// SiteBlockedData records one redirect to the blocked page.
type SiteBlockedData struct {
	Site   string `json:"site"`
	Source string `json:"source"`
	TabID  int    `json:"tab_id"`
}

func NewFocusActivated(sessionID string, at time.Time, meta FocusActivatedMeta) *Event {
	return newEvent(sessionID, TypeFocusActivated, at, meta, nil)
}

func NewFocusDeactivated(sessionID string, at time.Time, reason string, sessionMinutes int) *Event {
	return newEvent(sessionID, TypeFocusDeactivated, at,
		FocusDeactivatedData{Reason: reason, SessionMinutes: sessionMinutes}, nil)
}

// NewSiteBlocked tags the event with its source so range scans can filter
// sweeps from live navigations without decoding the payload.
func NewSiteBlocked(sessionID string, at time.Time, site, source string, tabID int) *Event {
	return newEvent(sessionID, TypeSiteBlocked, at,
		SiteBlockedData{Site: site, Source: source, TabID: tabID},
		map[string]string{"source": source})
}

// The payload types contain only strings and ints, so Marshal cannot fail.
func newEvent(sessionID, typ string, at time.Time, body any, tags map[string]string) *Event {
	payload, _ := json.Marshal(body)
	return &Event{SessionID: sessionID, Type: typ, At: at, Payload: payload, Tags: tags}
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}
