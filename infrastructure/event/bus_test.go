package event_test

import (
	"context"
	"testing"

	"github.com/dealgrid/freshness/domain/event"
	infraevent "github.com/dealgrid/freshness/infrastructure/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	t.Parallel()

	t.Run("delivers to subscribers in subscription order", func(t *testing.T) {
		t.Parallel()

		b := infraevent.NewBus()
		var order []string
		b.Subscribe("deals.changed", func(context.Context, event.Event) { order = append(order, "first") })
		b.Subscribe("deals.changed", func(context.Context, event.Event) { order = append(order, "second") })

		b.Publish(context.Background(), "deals.changed", nil)

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("delivery order = %v, want [first second]", order)
		}
	})

	t.Run("does not deliver across topics", func(t *testing.T) {
		t.Parallel()

		b := infraevent.NewBus()
		var calls int
		b.Subscribe("deals.changed", func(context.Context, event.Event) { calls++ })

		b.Publish(context.Background(), "profile.changed", nil)

		if calls != 0 {
			t.Errorf("handler called %d times for foreign topic, want 0", calls)
		}
	})

	t.Run("carries topic, payload, id and time", func(t *testing.T) {
		t.Parallel()

		b := infraevent.NewBus()
		var got event.Event
		b.Subscribe(event.TopicConnectivityRestored, func(_ context.Context, e event.Event) { got = e })

		b.Publish(context.Background(), event.TopicConnectivityRestored, "payload")

		if got.Topic != event.TopicConnectivityRestored {
			t.Errorf("Topic = %q, want %q", got.Topic, event.TopicConnectivityRestored)
		}
		if got.Payload != "payload" {
			t.Errorf("Payload = %v, want payload", got.Payload)
		}
		if got.ID == "" {
			t.Error("ID should not be empty")
		}
		if got.At.IsZero() {
			t.Error("At should be set")
		}
	})
}

func TestBus_PanicIsolation(t *testing.T) {
	t.Parallel()

	b := infraevent.NewBus()
	var calls int
	b.Subscribe("deals.changed", func(context.Context, event.Event) { panic("listener bug") })
	b.Subscribe("deals.changed", func(context.Context, event.Event) { calls++ })

	b.Publish(context.Background(), "deals.changed", nil)

	if calls != 1 {
		t.Errorf("handler after panicking peer called %d times, want 1", calls)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	t.Run("stops delivery", func(t *testing.T) {
		t.Parallel()

		b := infraevent.NewBus()
		var calls int
		unsub := b.Subscribe("deals.changed", func(context.Context, event.Event) { calls++ })

		b.Publish(context.Background(), "deals.changed", nil)
		unsub()
		b.Publish(context.Background(), "deals.changed", nil)

		if calls != 1 {
			t.Errorf("handler called %d times, want 1", calls)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		b := infraevent.NewBus()
		var calls int
		unsub := b.Subscribe("deals.changed", func(context.Context, event.Event) { calls++ })
		b.Subscribe("deals.changed", func(context.Context, event.Event) { calls++ })

		unsub()
		unsub()
		b.Publish(context.Background(), "deals.changed", nil)

		if calls != 1 {
			t.Errorf("remaining handler called %d times, want 1", calls)
		}
	})
}
