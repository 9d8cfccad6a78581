package changefeed

import (
	"log"
	"sync"
	"time"
)

// Collections carried on the change feed
const (
	CollectionInventory   = "inventory_items"
	CollectionConnections = "recipe_connections"
)

// EventKind represents the kind of change an event describes
type EventKind string

const (
	// Event kinds
	KindCreated EventKind = "created"
	KindUpdated EventKind = "updated"
	KindDeleted EventKind = "deleted"
)

// Event identifies which aggregate changed, so subscribers can re-query
// just that aggregate instead of reloading the whole collection.
type Event struct {
	Collection string    `json:"collection"`
	ItemID     string    `json:"itemId"`
	Kind       EventKind `json:"kind"`
	At         time.Time `json:"at"`
}

// Bus is the subscribe-on-change primitive. Publish delivers an event
// to every subscriber; Subscribe returns a function that cancels the
// subscription.
type Bus interface {
	Publish(event Event) error
	Subscribe(handler func(Event)) (unsubscribe func())
	Close() error
}

// LocalBus fans events out to in-process subscribers. Delivery is
// asynchronous: each subscriber drains its own buffered channel, so a
// slow handler never blocks the publisher.
type LocalBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

// NewLocalBus creates a new in-process change bus
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]chan Event)}
}

// Publish delivers the event to every subscriber, dropping it for
// subscribers whose buffer is full.
func (b *LocalBus) Publish(event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Println("change feed buffer full, dropping event")
		}
	}
	return nil
}

// Subscribe registers a handler for future events
func (b *LocalBus) Subscribe(handler func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		for event := range ch {
			handler(event)
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Close drops all subscriptions
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
