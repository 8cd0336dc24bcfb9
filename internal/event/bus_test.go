package event

import (
	"context"
	"errors"
	"testing"
)

func TestBusPublishSubscribe(t *testing.T) {
	b := NewBus()

	var got []string
	_, err := b.SubscribeFunc("document.saved", func(_ context.Context, ev any) error {
		e := ev.(Event[string])
		got = append(got, e.Payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := b.Publish(context.Background(), New[string]("document.saved", "a.txt", "test")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(got) != 1 || got[0] != "a.txt" {
		t.Errorf("delivered = %v, want [a.txt]", got)
	}
}

func TestBusWildcardDelivery(t *testing.T) {
	b := NewBus()

	count := 0
	_, _ = b.SubscribeFunc("document.**", func(_ context.Context, _ any) error {
		count++
		return nil
	})

	_ = b.Publish(context.Background(), New[string]("document.saved", "a", "test"))
	_ = b.Publish(context.Background(), New[string]("document.dirty.changed", "a", "test"))
	_ = b.Publish(context.Background(), New[string]("contents.external.changed", "a", "test"))

	if count != 2 {
		t.Errorf("wildcard handler ran %d times, want 2", count)
	}
}

func TestBusOnceSubscription(t *testing.T) {
	b := NewBus()

	count := 0
	_, _ = b.SubscribeFunc("document.activated", func(_ context.Context, _ any) error {
		count++
		return nil
	}, WithOnce())

	_ = b.Publish(context.Background(), New[string]("document.activated", "a", "test"))
	_ = b.Publish(context.Background(), New[string]("document.activated", "b", "test"))

	if count != 1 {
		t.Errorf("once handler ran %d times, want 1", count)
	}
	if n := b.Stats().ActiveSubscribers; n != 0 {
		t.Errorf("ActiveSubscribers = %d, want 0", n)
	}
}

func TestBusFilter(t *testing.T) {
	b := NewBus()

	count := 0
	_, _ = b.SubscribeFunc("document.saved", func(_ context.Context, _ any) error {
		count++
		return nil
	}, WithFilter(func(ev any) bool {
		e, ok := ev.(Event[string])
		return ok && e.Payload == "keep.txt"
	}))

	_ = b.Publish(context.Background(), New[string]("document.saved", "skip.txt", "test"))
	_ = b.Publish(context.Background(), New[string]("document.saved", "keep.txt", "test"))

	if count != 1 {
		t.Errorf("filtered handler ran %d times, want 1", count)
	}
}

func TestBusHandlerError(t *testing.T) {
	b := NewBus()

	boom := errors.New("boom")
	sub, _ := b.SubscribeFunc("document.saved", func(_ context.Context, _ any) error {
		return boom
	})

	err := b.Publish(context.Background(), New[string]("document.saved", "a", "test"))
	if err == nil {
		t.Fatal("expected handler error")
	}

	var he *HandlerError
	if !errors.As(err, &he) {
		t.Fatalf("error type = %T, want *HandlerError", err)
	}
	if he.SubscriptionID != sub.ID() {
		t.Errorf("SubscriptionID = %q, want %q", he.SubscriptionID, sub.ID())
	}
	if !errors.Is(err, boom) {
		t.Error("wrapped error should match errors.Is")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()

	count := 0
	sub, _ := b.SubscribeFunc("document.saved", func(_ context.Context, _ any) error {
		count++
		return nil
	})

	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := b.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe = %v, want ErrSubscriptionNotFound", err)
	}

	_ = b.Publish(context.Background(), New[string]("document.saved", "a", "test"))
	if count != 0 {
		t.Errorf("handler ran %d times after unsubscribe, want 0", count)
	}
}

func TestBusInvalidInputs(t *testing.T) {
	b := NewBus()

	if _, err := b.Subscribe("document.saved", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler error = %v, want ErrNilHandler", err)
	}
	if _, err := b.SubscribeFunc("", func(context.Context, any) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := b.Publish(context.Background(), struct{}{}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("topicless event error = %v, want ErrInvalidEvent", err)
	}
}

func TestBusDeliveryOrder(t *testing.T) {
	b := NewBus()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		_, _ = b.SubscribeFunc("document.saved", func(_ context.Context, _ any) error {
			order = append(order, i)
			return nil
		})
	}

	_ = b.Publish(context.Background(), New[string]("document.saved", "a", "test"))

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("delivery order = %v, want [1 2 3]", order)
	}
}

func TestAsHandlerSkipsOtherTypes(t *testing.T) {
	b := NewBus()

	count := 0
	_, _ = b.Subscribe("document.saved", AsHandler(func(_ context.Context, e Event[int]) error {
		count++
		return nil
	}))

	_ = b.Publish(context.Background(), New[string]("document.saved", "a", "test"))
	_ = b.Publish(context.Background(), New[int]("document.saved", 7, "test"))

	if count != 1 {
		t.Errorf("typed handler ran %d times, want 1", count)
	}
}
