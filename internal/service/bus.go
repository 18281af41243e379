package service

import (
	"slices"
	"sync"
)

// Event resources and actions.
const (
	ResourceLayer  = "layers"
	ResourceLegend = "legend"
	ResourceZoom   = "zoom"

	ActionEnabled    = "enabled"
	ActionDisabled   = "disabled"
	ActionLoading    = "loading"
	ActionLoaded     = "loaded"
	ActionFailed     = "failed"
	ActionRedirected = "redirected"
	ActionUpdated    = "updated"
	ActionRemoved    = "removed"
)

// Event represents a state change worth pushing to viewers.
type Event struct {
	Resource string // e.g. "legend"
	Action   string // e.g. "updated", "removed"
	ID       string // layer id
}

// EventBus fans change events out to viewers. Subscribers pick the
// resources they care about; slow subscribers miss events rather than block
// the event loop.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event][]string
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event][]string)}
}

// Publish delivers e to every interested subscriber without blocking.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, resources := range b.subs {
		if len(resources) > 0 && !slices.Contains(resources, e.Resource) {
			continue
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel receiving events for the given
// resources, or for all resources when none are named.
func (b *EventBus) Subscribe(resources ...string) chan Event {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.subs[ch] = resources
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
