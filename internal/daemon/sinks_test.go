package daemon

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/bridge"
	"git.home.luguber.info/inful/contextfocus/internal/daemon/events"
	"git.home.luguber.info/inful/contextfocus/internal/eventstore"
	"git.home.luguber.info/inful/contextfocus/internal/router"
)

func newHistory(t *testing.T) (*HistoryRecorder, *eventstore.SessionHistoryProjection, eventstore.Store) {
	t.Helper()
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	proj := eventstore.NewSessionHistoryProjection(store, 10)
	return NewHistoryRecorder(eventstore.NewEmitter(store, proj)), proj, store
}

func TestHistoryRecorder_RecordsSession(t *testing.T) {
	h, proj, _ := newHistory(t)
	ctx := t.Context()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tab := 4

	require.NoError(t, h.Record(ctx, events.FocusChanged{
		ID: "s-1", Active: true, Reason: "github.com", Mode: "auto", Signal: "domain", WorkTabID: &tab, At: start,
	}))
	require.NoError(t, h.Record(ctx, events.SiteBlocked{
		ID: "b-1", TabID: 5, Site: "reddit.com", Source: events.SourceNavigation, At: start.Add(time.Minute),
	}))
	require.NoError(t, h.Record(ctx, events.SiteBlocked{
		ID: "b-2", TabID: 6, Site: "reddit.com", Source: events.SourceSweep, At: start.Add(2 * time.Minute),
	}))
	require.NoError(t, h.Record(ctx, events.FocusChanged{
		ID: "e-1", Active: false, Reason: "work tab closed", SessionMinutes: 25, At: start.Add(25 * time.Minute),
	}))

	got, ok := proj.GetSession("s-1")
	require.True(t, ok)
	assert.Equal(t, "ended", got.Status)
	assert.Equal(t, "github.com", got.StartReason)
	assert.Equal(t, "work tab closed", got.EndReason)
	assert.Equal(t, 25, got.SessionMinutes)
	assert.Equal(t, 2, got.BlockedCount)
	assert.Equal(t, map[string]int{"reddit.com": 2}, got.BlockedSites)
}

func TestHistoryRecorder_IgnoresEventsOutsideSession(t *testing.T) {
	h, proj, store := newHistory(t)
	ctx := t.Context()
	now := time.Now()

	require.NoError(t, h.Record(ctx, events.SiteBlocked{ID: "b", Site: "x.com", At: now}))
	require.NoError(t, h.Record(ctx, events.FocusChanged{ID: "d", Active: false, Reason: "force", At: now}))

	assert.Empty(t, proj.GetHistory(0))
	evts, err := store.GetRange(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, evts)
}

func TestHistoryRecorder_CloseOrphan(t *testing.T) {
	h, _, store := newHistory(t)
	ctx := t.Context()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, h.Record(ctx, events.FocusChanged{ID: "s-1", Active: true, Reason: "manual override", At: start}))

	// A fresh process rebuilds the projection and finds the session still open.
	rebuilt := eventstore.NewSessionHistoryProjection(store, 10)
	require.NoError(t, rebuilt.Rebuild(ctx))
	require.NotNil(t, rebuilt.GetActiveSession())

	next := NewHistoryRecorder(eventstore.NewEmitter(store, rebuilt))
	require.NoError(t, next.CloseOrphan(ctx, start.Add(time.Hour)))

	assert.Nil(t, rebuilt.GetActiveSession())
	got, ok := rebuilt.GetSession("s-1")
	require.True(t, ok)
	assert.Equal(t, ReasonRestart, got.EndReason)

	// Nothing left to close.
	require.NoError(t, next.CloseOrphan(ctx, start.Add(2*time.Hour)))
}

type fakeHub struct {
	mu   sync.Mutex
	envs []bridge.Envelope
}

func (f *fakeHub) Broadcast(env bridge.Envelope) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
	return 0
}

type fakePublisher struct {
	names []string
	err   error
}

func (f *fakePublisher) Publish(evt events.Event) error {
	f.names = append(f.names, evt.EventName())
	return f.err
}

func TestBroadcaster_Forward(t *testing.T) {
	hub := &fakeHub{}
	pub := &fakePublisher{err: errors.New("nats down")}
	b := NewBroadcaster(hub, pub)

	b.Forward(events.FocusChanged{ID: "1", Active: true, Reason: "manual override"})
	b.Forward(events.SiteBlocked{ID: "2", Site: "reddit.com"})
	b.Forward(events.FocusChanged{ID: "3", Active: false, Reason: "force"})

	require.Len(t, hub.envs, 2)
	assert.Equal(t, bridge.KindFocusChanged, hub.envs[0].Kind)
	assert.Equal(t, router.NewFocusChanged(true, "manual override"), hub.envs[0].Event)
	assert.Equal(t, router.NewFocusChanged(false, "force"), hub.envs[1].Event)
	assert.Equal(t, []string{events.NameFocusActivated, events.NameSiteBlocked, events.NameFocusDeactivated}, pub.names)
}

func TestBroadcaster_RunStopsWhenBusCloses(t *testing.T) {
	bus := events.NewBus()
	ch, unsub := events.Subscribe[events.Event](bus, 4)
	defer unsub()
	hub := &fakeHub{}
	b := NewBroadcaster(hub, nil)

	done := make(chan struct{})
	go func() {
		b.Run(ch)
		close(done)
	}()

	assert.Zero(t, bus.TryPublish(events.FocusChanged{ID: "1", Active: true}))
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcaster did not stop")
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Len(t, hub.envs, 1)
}
