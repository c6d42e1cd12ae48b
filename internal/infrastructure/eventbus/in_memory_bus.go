package eventbus

import (
	"context"
	"sync"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
)

// HandlerFunc applies an event and reports whether it changed anything.
type HandlerFunc func(context.Context, event.Event) (bool, error)

type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerFunc
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[event.Type][]HandlerFunc),
	}
}

func (b *InMemoryBus) Subscribe(eventType event.Type, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Execute runs every handler for the event and returns how many applied it.
// The first handler error stops the run.
func (b *InMemoryBus) Execute(ctx context.Context, evt event.Event) (int, error) {
	b.mu.RLock()
	handlers := b.handlers[evt.Type]
	b.mu.RUnlock()

	applied := 0
	for _, handler := range handlers {
		ok, err := handler(ctx, evt)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}

	return applied, nil
}

func (b *InMemoryBus) Publish(evt event.Event) error {
	_, err := b.Execute(context.Background(), evt)
	return err
}
