package event

import (
	"sync"

	"github.com/jupyter/jupyter-js-docmanager/internal/event/topic"
)

// registry manages subscriptions organized by topic pattern.
// It is safe for concurrent use.
type registry struct {
	mu   sync.RWMutex
	subs map[topic.Topic][]*subscription
	byID map[string]*subscription
	// order preserves global subscribe order so delivery is deterministic.
	order []*subscription
}

func newRegistry() *registry {
	return &registry{
		subs: make(map[topic.Topic][]*subscription),
		byID: make(map[string]*subscription),
	}
}

func (r *registry) add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[sub.Topic()] = append(r.subs[sub.Topic()], sub)
	r.byID[sub.ID()] = sub
	r.order = append(r.order, sub)
}

func (r *registry) remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.byID[subID]
	if !exists {
		return false
	}

	pattern := sub.Topic()
	subs := r.subs[pattern]
	for i, s := range subs {
		if s.ID() == subID {
			r.subs[pattern] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subs[pattern]) == 0 {
		delete(r.subs, pattern)
	}

	for i, s := range r.order {
		if s.ID() == subID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	delete(r.byID, subID)
	return true
}

// matchActive returns active subscriptions whose pattern matches the event
// topic, in subscribe order.
func (r *registry) matchActive(eventTopic topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*subscription
	for _, sub := range r.order {
		if !sub.IsActive() {
			continue
		}
		if eventTopic.Matches(sub.Topic()) {
			matched = append(matched, sub)
		}
	}
	return matched
}

func (r *registry) countActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sub := range r.byID {
		if sub.IsActive() {
			count++
		}
	}
	return count
}
