package daemon

import (
	"context"

	"git.home.luguber.info/inful/contextfocus/internal/bridge"
	"git.home.luguber.info/inful/contextfocus/internal/router"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

// Browser input is applied on the command loop so tab registry updates and
// the monitor's reaction to them are never interleaved with other work.

// TabActivated records the focused tab and evaluates it.
func (d *Daemon) TabActivated(ctx context.Context, id tabs.ID, tab *tabs.Tab) error {
	return d.loop.Call(ctx, string(bridge.KindTabActivated), func(ctx context.Context) error {
		if tab != nil {
			t := *tab
			t.ID = id
			d.tabs.Upsert(t)
		}
		d.tabs.Activate(id)
		d.monitor.OnTabActivated(ctx, id)
		return nil
	})
}

// TabUpdated merges the change into the registry and evaluates the tab.
func (d *Daemon) TabUpdated(ctx context.Context, tab tabs.Tab, change tabs.Change) error {
	return d.loop.Call(ctx, string(bridge.KindTabUpdated), func(ctx context.Context) error {
		merged := d.tabs.Apply(tab, change)
		d.monitor.OnTabUpdated(ctx, merged, change)
		return nil
	})
}

// TabRemoved lets the monitor react before the tab is forgotten.
func (d *Daemon) TabRemoved(ctx context.Context, id tabs.ID) error {
	return d.loop.Call(ctx, string(bridge.KindTabRemoved), func(ctx context.Context) error {
		d.monitor.OnTabRemoved(ctx, id)
		d.tabs.Remove(id)
		return nil
	})
}

// TabsSnapshot replaces the registry with the browser's full tab list.
func (d *Daemon) TabsSnapshot(ctx context.Context, all []tabs.Tab) error {
	return d.loop.Call(ctx, string(bridge.KindTabsSnapshot), func(ctx context.Context) error {
		d.tabs.Replace(all)
		if d.machine.Active() {
			d.monitor.Sweep(ctx)
		}
		return nil
	})
}

// BeforeNavigate checks a pending navigation against the blocklist.
func (d *Daemon) BeforeNavigate(ctx context.Context, nav tabs.Navigation) error {
	return d.loop.Call(ctx, string(bridge.KindNavigationBefore), func(ctx context.Context) error {
		d.monitor.OnBeforeNavigate(ctx, nav)
		return nil
	})
}

// Message decodes and answers one UI message.
func (d *Daemon) Message(ctx context.Context, raw []byte) (any, error) {
	req, err := router.Decode(raw)
	if err != nil {
		return nil, err
	}
	return d.dispatch(ctx, req)
}

// State answers like GET_STATE.
func (d *Daemon) State(ctx context.Context) (any, error) {
	return d.dispatch(ctx, router.Request{Type: router.TypeGetState})
}

func (d *Daemon) dispatch(ctx context.Context, req router.Request) (any, error) {
	var resp any
	err := d.loop.Call(ctx, "message."+string(req.Type), func(ctx context.Context) error {
		var err error
		resp, err = d.router.Dispatch(ctx, req)
		return err
	})
	if err != nil {
		// resp may still be written by the loop after a timeout.
		return nil, err
	}
	return resp, nil
}

var _ bridge.Handler = (*Daemon)(nil)
