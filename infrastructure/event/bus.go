// Package event implements the in-process invalidation bus.
package event

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealgrid/freshness/domain/event"
	"github.com/dealgrid/freshness/infrastructure/logging"
)

type subscription struct {
	id      uint64
	handler event.Handler
}

// Bus is a synchronous publish/subscribe channel. Handlers of the same topic
// run in subscription order; a panicking handler is recovered and logged
// without aborting delivery to the handlers after it.
type Bus struct {
	mu     sync.Mutex
	topics map[event.Topic][]subscription
	nextID uint64
}

// NewBus creates a new bus.
func NewBus() *Bus {
	return &Bus{
		topics: make(map[event.Topic][]subscription),
	}
}

// Publish delivers an event to every handler subscribed to topic.
func (b *Bus) Publish(ctx context.Context, topic event.Topic, payload any) {
	e := event.Event{
		ID:      uuid.NewString(),
		Topic:   topic,
		Payload: payload,
		At:      time.Now(),
	}

	b.mu.Lock()
	snapshot := slices.Clone(b.topics[topic])
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.deliver(ctx, sub.handler, e)
	}
}

// deliver invokes a single handler with panic isolation.
func (b *Bus) deliver(ctx context.Context, h event.Handler, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Add(logging.Topic(string(e.Topic))).
				Add(logging.ErrorField(fmt.Errorf("handler panic: %v", r))).
				Msg("bus handler failed")
		}
	}()
	h(ctx, e)
}

// Subscribe registers a handler for topic. The returned unsubscribe function
// is idempotent.
func (b *Bus) Subscribe(topic event.Topic, h event.Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topics[topic]
		b.topics[topic] = slices.DeleteFunc(subs, func(s subscription) bool {
			return s.id == id
		})
	}
}

// Ensure Bus implements event.Bus
var _ event.Bus = (*Bus)(nil)
