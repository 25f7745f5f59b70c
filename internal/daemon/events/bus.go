package events

import (
	"slices"
	"sync"
)

// Bus is a typed, in-process event bus carrying focus transitions and redirects
// from the command loop to the broadcast sinks (WebSocket hub, NATS, history).
//
// Publishing never blocks: the loop must not stall on a slow sink, so a
// subscriber whose buffer is full misses the event and the publisher learns the
// count. The bus is not durable; internal/eventstore keeps the history.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID uint64
	closed bool
}

type subscription struct {
	id uint64
	// offer reports whether evt matched the subscription and whether it fit.
	offer func(evt any) (matched, delivered bool)
	close func()
}

// NewBus creates an open bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a buffered subscription for events assignable to T. An
// interface T receives every event implementing it. The returned func
// unsubscribes and closes the channel; Close on the bus does the same for all.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	ch := make(chan T, buffer)
	var once sync.Once
	closeCh := func() { once.Do(func() { close(ch) }) }

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		closeCh()
		return ch, func() {}
	}

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, &subscription{
		id: id,
		offer: func(evt any) (bool, bool) {
			v, ok := evt.(T)
			if !ok {
				return false, false
			}
			select {
			case ch <- v:
				return true, true
			default:
				return true, false
			}
		},
		close: closeCh,
	})

	return ch, func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.IndexFunc(b.subs, func(s *subscription) bool { return s.id == id })
	if i < 0 {
		return
	}
	b.subs[i].close()
	b.subs = slices.Delete(b.subs, i, i+1)
}

// TryPublish delivers evt to every matching subscriber with buffer room and
// returns how many matching subscribers missed it. Having no subscribers is
// not a drop, and publishing on a closed bus is a no-op.
func (b *Bus) TryPublish(evt any) int {
	if evt == nil {
		return 0
	}
	// Sends happen under the read lock so Close cannot close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	dropped := 0
	for _, s := range b.subs {
		if matched, delivered := s.offer(evt); matched && !delivered {
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription channel. Buffered events stay readable.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		s.close()
	}
	b.subs = nil
}
