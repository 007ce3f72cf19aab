// Package event provides the domain model for the in-process invalidation
// bus.
package event

import (
	"context"
	"time"
)

// Topic names a class of events on the bus.
type Topic string

// Reserved topics.
const (
	// TopicConnectivityRestored is published exactly once per
	// offline-to-online transition, never on startup and never while
	// already online.
	TopicConnectivityRestored Topic = "connectivity-restored"
)

// Event is a single bus delivery.
type Event struct {
	// ID uniquely identifies the publication.
	ID string

	// Topic is the event name the publication was addressed to.
	Topic Topic

	// Payload carries optional event data.
	Payload any

	// At is when the event was published.
	At time.Time
}

// Handler consumes events for a topic. Handlers are exception-isolated: a
// panicking handler never prevents delivery to the handlers after it.
type Handler func(ctx context.Context, e Event)

// Bus is a process-wide publish/subscribe channel. Fan-out is synchronous and
// FIFO among handlers of the same topic in subscription order; delivery
// across topics has no defined relative order.
type Bus interface {
	// Publish delivers an event to every handler subscribed to topic.
	Publish(ctx context.Context, topic Topic, payload any)

	// Subscribe registers a handler for topic and returns an idempotent
	// unsubscribe function.
	Subscribe(topic Topic, h Handler) (unsubscribe func())
}
