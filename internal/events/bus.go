// Package events provides synchronous in-process change notifications for
// the page/UI layer. Dispatch is single-threaded per Publish call and
// follows listener registration order.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Event names the bus dispatches.
const (
	SelectionChanged = "selectionChanged"
	CatalogReloaded  = "catalogReloaded"
	EPGRefreshed     = "epgRefreshed"
)

// Handler receives the event payload. Handlers run on the publisher's
// goroutine and must not block.
type Handler func(payload any)

type subscription struct {
	id      string
	handler Handler
}

// Bus is a minimal registration-order publish/subscribe hub.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]subscription)}
}

// Subscribe registers a handler for an event and returns a function that
// removes the registration.
func (b *Bus) Subscribe(event string, handler Handler) (unsubscribe func()) {
	id := uuid.NewString()

	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[event]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[event] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes every handler registered for the event, in registration
// order, on the calling goroutine.
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[event]))
	copy(subs, b.handlers[event])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(payload)
	}
}
