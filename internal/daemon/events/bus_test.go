package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_ConcreteSubscriptionGetsOnlyItsType(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[SiteBlocked](b, 2)
	defer unsubscribe()

	assert.Zero(t, b.TryPublish(FocusChanged{ID: "f", Active: true}))
	assert.Zero(t, b.TryPublish(SiteBlocked{ID: "s", Site: "reddit.com"}))

	got := <-ch
	assert.Equal(t, "s", got.ID)
	assert.Empty(t, ch)
}

func TestBus_TryPublishDropsWhenFull(t *testing.T) {
	b := NewBus()
	defer b.Close()

	require.Equal(t, 0, b.TryPublish(FocusChanged{ID: NewID(), Active: true}), "no subscribers is not a drop")

	ch, unsubscribe := Subscribe[FocusChanged](b, 1)
	defer unsubscribe()
	all, unsubscribeAll := Subscribe[Event](b, 4)
	defer unsubscribeAll()

	require.Equal(t, 0, b.TryPublish(FocusChanged{ID: "a", Active: true}))
	require.Equal(t, 1, b.TryPublish(FocusChanged{ID: "b", Active: false}))

	got := <-ch
	require.Equal(t, "a", got.ID)
	require.Equal(t, NameFocusActivated, got.EventName())

	require.Equal(t, 0, b.TryPublish(SiteBlocked{ID: "c", Site: "youtube.com"}))
	names := []string{(<-all).EventName(), (<-all).EventName(), (<-all).EventName()}
	require.Equal(t, []string{NameFocusActivated, NameFocusDeactivated, NameSiteBlocked}, names)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[Event](b, 1)
	require.Equal(t, 1, b.Len())
	unsubscribe()
	unsubscribe()
	assert.Zero(t, b.Len())

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, b.TryPublish(FocusChanged{ID: "x"}))
}

func TestBus_CloseKeepsBufferedEvents(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := Subscribe[FocusChanged](b, 2)
	require.Zero(t, b.TryPublish(FocusChanged{ID: "a"}))
	b.Close()
	b.Close()
	unsubscribe()

	got, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
	_, ok = <-ch
	assert.False(t, ok)

	assert.Zero(t, b.TryPublish(FocusChanged{ID: "late"}))
	late, _ := Subscribe[FocusChanged](b, 1)
	_, ok = <-late
	assert.False(t, ok)
}

func TestBus_ConcurrentPublishAndClose(t *testing.T) {
	b := NewBus()
	ch, _ := Subscribe[Event](b, 8)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				b.TryPublish(FocusChanged{ID: "x"})
			}
		}()
	}
	go func() {
		for range ch {
		}
	}()
	b.Close()
	wg.Wait()
}
