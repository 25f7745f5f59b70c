// Package tabs tracks the browser's open tabs as reported by the bridge and
// exposes them, together with tab commands, through the Driver interface.
package tabs

import (
	"context"
	"strconv"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

// ID identifies a browser tab.
type ID int

func (id ID) String() string { return strconv.Itoa(int(id)) }

// Ptr returns a pointer to a copy of id.
func (id ID) Ptr() *ID { return &id }

// Status values reported by the browser.
const (
	StatusLoading  = "loading"
	StatusComplete = "complete"
)

// Tab is the last known state of one browser tab.
type Tab struct {
	ID       ID     `json:"id"`
	WindowID int    `json:"windowId,omitempty"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Status   string `json:"status,omitempty"`
	Active   bool   `json:"active,omitempty"`
}

// Change is the delta carried by a tab update event. Nil fields did not change.
type Change struct {
	Status *string `json:"status,omitempty"`
	Title  *string `json:"title,omitempty"`
	URL    *string `json:"url,omitempty"`
}

// Complete reports whether the page finished loading.
func (c Change) Complete() bool {
	return c.Status != nil && *c.Status == StatusComplete
}

// TitleChanged reports whether the update carries a new title.
func (c Change) TitleChanged() bool {
	return c.Title != nil
}

// Navigation is a pending top-level or frame navigation.
type Navigation struct {
	TabID   ID     `json:"tabId"`
	FrameID int    `json:"frameId"`
	URL     string `json:"url"`
}

// TopFrame reports whether the navigation targets the tab itself.
func (n Navigation) TopFrame() bool { return n.FrameID == 0 }

// Badge is the status indicator state shown on the extension icon.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Badge presets.
var (
	BadgeOn  = Badge{Text: "ON", Color: "#22c55e"}
	BadgeOff = Badge{Text: "", Color: "#6b7280"}
)

// Driver reads tabs and issues tab commands.
type Driver interface {
	Get(ctx context.Context, id ID) (Tab, error)
	Query(ctx context.Context) ([]Tab, error)
	Navigate(ctx context.Context, id ID, url string) error
}

// Commander sends commands to the browser.
type Commander interface {
	Navigate(ctx context.Context, id ID, url string) error
	SetBadge(ctx context.Context, badge Badge) error
}

// ErrTabNotFound reports a tab that is closed or was never seen.
var ErrTabNotFound = errors.TabsError("tab not found").Build()

func tabNotFound(id ID) error {
	return errors.WrapError(ErrTabNotFound, errors.CategoryTabs, "tab not found").
		WithSeverity(errors.SeverityWarning).
		WithContext("tab_id", int(id)).
		Build()
}
