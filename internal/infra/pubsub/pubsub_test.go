package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/infra/pubsub"
)

func TestInMemoryBus_DeliversToOwnUIDOnly(t *testing.T) {
	bus := pubsub.NewInMemoryBus()

	var got []domain.SessionEvent
	cancel, err := bus.Subscribe("u-1", func(ev domain.SessionEvent) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	_ = bus.Publish(context.Background(), domain.SessionEvent{Type: domain.SessionRoleChanged, UID: "u-1", Role: domain.RoleDJ, At: time.Now()})
	_ = bus.Publish(context.Background(), domain.SessionEvent{Type: domain.SessionSignedOut, UID: "u-other", At: time.Now()})

	if len(got) != 1 {
		t.Fatalf("expected 1 event for u-1, got %d", len(got))
	}
	if got[0].Type != domain.SessionRoleChanged || got[0].Role != domain.RoleDJ {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestInMemoryBus_CancelStopsDelivery(t *testing.T) {
	bus := pubsub.NewInMemoryBus()

	delivered := 0
	cancel, err := bus.Subscribe("u-1", func(domain.SessionEvent) { delivered++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_ = bus.Publish(context.Background(), domain.SessionEvent{UID: "u-1"})
	cancel()
	cancel() // double cancel is safe
	_ = bus.Publish(context.Background(), domain.SessionEvent{UID: "u-1"})

	if delivered != 1 {
		t.Errorf("expected 1 delivery before cancel, got %d", delivered)
	}
}

func TestInMemoryBus_MultipleSubscribers(t *testing.T) {
	bus := pubsub.NewInMemoryBus()

	a, b := 0, 0
	cancelA, _ := bus.Subscribe("u-1", func(domain.SessionEvent) { a++ })
	cancelB, _ := bus.Subscribe("u-1", func(domain.SessionEvent) { b++ })
	defer cancelA()
	defer cancelB()

	_ = bus.Publish(context.Background(), domain.SessionEvent{UID: "u-1"})

	if a != 1 || b != 1 {
		t.Errorf("expected both subscribers to receive the event, got %d and %d", a, b)
	}
}
