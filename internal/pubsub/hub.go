package pubsub

import (
	"sync"

	"quizroom-service/internal/domain"
)

// Publisher fans an event out to everyone listening on a topic.
type Publisher interface {
	Publish(topic string, event domain.Event) error
}

// Hub is an in-process topic hub. Every room gets its own topic and each
// websocket connection holds one subscriber channel.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan domain.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan domain.Event]struct{})}
}

// Subscribe registers a channel on the topic. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *Hub) Subscribe(topic string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan domain.Event]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.topics[topic]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to all topic subscribers without blocking: a
// subscriber that fell behind loses its oldest buffered event first.
func (h *Hub) Publish(topic string, event domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.topics[topic] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

// Fanout publishes to several backends in order, e.g. the local hub plus a
// cross-instance broker.
type Fanout struct {
	targets []Publisher
}

func NewFanout(targets ...Publisher) *Fanout {
	return &Fanout{targets: targets}
}

func (f *Fanout) Publish(topic string, event domain.Event) error {
	var firstErr error
	for _, target := range f.targets {
		if err := target.Publish(topic, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
