package event

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jupyter/jupyter-js-docmanager/internal/event/topic"
)

// Bus is the central event bus interface.
//
// Delivery is synchronous: Publish invokes every matching handler in
// subscribe order before returning. Handlers that need to defer work must
// arrange their own goroutines.
type Bus interface {
	// Publish delivers an event to all matching subscriptions.
	Publish(ctx context.Context, event any) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)

	// SubscribeFunc registers a function handler for a topic pattern.
	SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(sub Subscription) error

	// Stats returns current bus statistics.
	Stats() Stats
}

// bus is the default Bus implementation.
type bus struct {
	registry *registry

	eventsPublished atomic.Uint64
	eventsDelivered atomic.Uint64
	handlerErrors   atomic.Uint64
}

// NewBus creates a new synchronous event bus.
func NewBus() Bus {
	return &bus{registry: newRegistry()}
}

// Publish delivers an event to all matching subscriptions in subscribe order.
// The first handler error aborts delivery and is returned wrapped in a
// HandlerError.
func (b *bus) Publish(ctx context.Context, event any) error {
	eventTopic := extractTopic(event)
	if eventTopic == "" {
		return ErrInvalidEvent
	}

	b.eventsPublished.Add(1)

	for _, sub := range b.registry.matchActive(eventTopic) {
		if !sub.ShouldDeliver(event) {
			continue
		}

		if err := sub.handler.Handle(ctx, event); err != nil {
			b.handlerErrors.Add(1)
			return &HandlerError{
				SubscriptionID: sub.ID(),
				Topic:          eventTopic.String(),
				Err:            err,
			}
		}
		b.eventsDelivered.Add(1)

		if sub.config.Once {
			sub.Cancel()
			b.registry.remove(sub.ID())
		}
	}

	return nil
}

// Subscribe registers a handler for the given topic pattern.
// Safe for concurrent use.
func (b *bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(uuid.NewString(), pattern, handler, opts...)
	b.registry.add(sub)
	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe removes a subscription. Safe for concurrent use.
func (b *bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	sub.Cancel()
	if !b.registry.remove(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Stats returns current bus statistics.
func (b *bus) Stats() Stats {
	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		ActiveSubscribers: b.registry.countActive(),
	}
}

// extractTopic extracts the topic from an event.
func extractTopic(event any) topic.Topic {
	if tp, ok := event.(TopicProvider); ok {
		return tp.EventTopic()
	}
	return ""
}
