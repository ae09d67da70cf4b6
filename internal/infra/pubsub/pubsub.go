// Package pubsub fans session events out to live watchers. The in-memory
// bus serves a single console instance; the Redis bus bridges instances
// so a role change applied on one node reaches sessions held by another.
package pubsub

import (
	"context"
	"sync"

	"github.com/vibra/booking-console-go/internal/domain"
)

// InMemoryBus delivers session events within one process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string]map[int]func(domain.SessionEvent)
	nextID   int
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[string]map[int]func(domain.SessionEvent))}
}

// Publish delivers ev to every subscriber of its uid. Delivery is
// synchronous; handlers must not block.
func (b *InMemoryBus) Publish(_ context.Context, ev domain.SessionEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers[ev.UID] {
		h(ev)
	}
	return nil
}

// Subscribe registers a handler for one uid's session events. The returned
// cancel detaches it; calling cancel more than once is safe.
func (b *InMemoryBus) Subscribe(uid string, handler func(domain.SessionEvent)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[uid] == nil {
		b.handlers[uid] = make(map[int]func(domain.SessionEvent))
	}
	id := b.nextID
	b.nextID++
	b.handlers[uid][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[uid], id)
			if len(b.handlers[uid]) == 0 {
				delete(b.handlers, uid)
			}
		})
	}, nil
}
