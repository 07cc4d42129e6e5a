package app

import (
	"sync"
	"sync/atomic"
)

// DefaultSubscriberBuffer is the per-subscriber event backlog. A
// subscriber that falls this far behind starts dropping events and is
// marked lagged.
const DefaultSubscriberBuffer = 100

// Bus fans events out to independent subscribers. Publishing never
// blocks on subscriber consumption speed: a full subscriber queue drops
// the event and increments the subscription's dropped counter. Events
// delivered to a single subscriber arrive in publish order.
type Bus struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	capacity int
}

// NewBus creates a bus with the given per-subscriber queue capacity.
// A non-positive capacity uses DefaultSubscriberBuffer.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultSubscriberBuffer
	}
	return &Bus{
		subs:     make(map[*Subscription]struct{}),
		capacity: capacity,
	}
}

// Subscribe registers a new subscriber. The caller must Close the
// subscription when done listening.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus: b,
		ch:  make(chan Event, b.capacity),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers the event to every current subscriber, dropping it
// for subscribers whose queue is full.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Subscription is one subscriber's bounded view of the bus.
type Subscription struct {
	bus     *Bus
	ch      chan Event
	dropped atomic.Uint64
}

// Events returns the receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events were discarded because this
// subscriber fell behind. A non-zero count means delivery gaps exist
// and the subscriber must resynchronize from the current state rather
// than assume it saw everything.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Lagged reports whether any event has been dropped for this
// subscriber.
func (s *Subscription) Lagged() bool {
	return s.dropped.Load() > 0
}

// Close removes the subscription from the bus and closes its channel.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}
