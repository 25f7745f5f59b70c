package tabs

import (
	"context"
	"sort"
	"sync"
)

// Registry is the in-memory mirror of open tabs.
type Registry struct {
	mu   sync.RWMutex
	tabs map[ID]Tab
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tabs: make(map[ID]Tab)}
}

// Replace swaps the whole set, used when the browser sends a full snapshot.
func (r *Registry) Replace(all []Tab) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs = make(map[ID]Tab, len(all))
	for _, t := range all {
		r.tabs[t.ID] = t
	}
}

// Upsert stores t.
func (r *Registry) Upsert(t Tab) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs[t.ID] = t
}

// Apply merges change into the stored tab and returns the result.
// Unknown tabs are created from base.
func (r *Registry) Apply(base Tab, change Change) Tab {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tabs[base.ID]
	if !ok {
		t = base
	} else {
		if base.URL != "" {
			t.URL = base.URL
		}
		if base.Title != "" {
			t.Title = base.Title
		}
	}
	if change.Status != nil {
		t.Status = *change.Status
	}
	if change.Title != nil {
		t.Title = *change.Title
	}
	if change.URL != nil {
		t.URL = *change.URL
	}
	r.tabs[t.ID] = t
	return t
}

// Activate marks id as the active tab of its window.
func (r *Registry) Activate(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tabs[id]
	if !ok {
		return
	}
	for k, other := range r.tabs {
		if other.WindowID == t.WindowID && other.Active {
			other.Active = false
			r.tabs[k] = other
		}
	}
	t.Active = true
	r.tabs[id] = t
}

// Remove forgets id.
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, id)
}

// Len returns the number of known tabs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

// Get returns the tab with id.
func (r *Registry) Get(_ context.Context, id ID) (Tab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tabs[id]
	if !ok {
		return Tab{}, tabNotFound(id)
	}
	return t, nil
}

// Query returns all known tabs ordered by id.
func (r *Registry) Query(_ context.Context) ([]Tab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tab, 0, len(r.tabs))
	for _, t := range r.tabs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BrowserDriver answers reads from the registry and forwards commands to the browser.
type BrowserDriver struct {
	*Registry
	cmd Commander
}

// NewBrowserDriver combines a registry with a command sink.
func NewBrowserDriver(reg *Registry, cmd Commander) *BrowserDriver {
	return &BrowserDriver{Registry: reg, cmd: cmd}
}

// Navigate sends the tab to url and records the new URL optimistically.
func (d *BrowserDriver) Navigate(ctx context.Context, id ID, url string) error {
	if _, err := d.Get(ctx, id); err != nil {
		return err
	}
	if err := d.cmd.Navigate(ctx, id, url); err != nil {
		return err
	}
	d.Apply(Tab{ID: id}, Change{URL: &url})
	return nil
}
