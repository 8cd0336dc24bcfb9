// Package event provides the typed, topic-based event bus used to surface
// document lifecycle transitions (open requested, ready, activated, dirty
// changes) to the hosting shell. Delivery is synchronous and in-order so
// that once-per-transition semantics hold without extra coordination.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/jupyter/jupyter-js-docmanager/internal/event/topic"
)

// Event is an immutable event instance.
type Event[T any] struct {
	// Type is the hierarchical event type (e.g., "document.saved").
	Type topic.Topic

	// Payload contains the event-specific data.
	Payload T

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata is standard information attached to every event.
type Metadata struct {
	// ID uniquely identifies this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the component that published the event.
	Source string
}

// New creates an event with the given type and payload.
func New[T any](eventType topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// EventTopic returns the event's topic for type-erased handling.
func (e Event[T]) EventTopic() topic.Topic {
	return e.Type
}

// EventMetadata returns the event's metadata for type-erased handling.
func (e Event[T]) EventMetadata() Metadata {
	return e.Metadata
}

// TopicProvider is implemented by types that can provide their topic.
type TopicProvider interface {
	EventTopic() topic.Topic
}

// MetadataProvider is implemented by types that can provide their metadata.
type MetadataProvider interface {
	EventMetadata() Metadata
}
