package service

import (
	"sync"

	"herald/internal/models"
)

const subscriberBufferSize = 64

// EventHub fans delivery log entries out to live subscribers (the websocket
// feed). Publishing never blocks: a subscriber that falls behind loses events
// rather than stalling dispatch.
type EventHub struct {
	mu          sync.Mutex
	subscribers map[int]chan models.DeliveryLogEntry
	nextID      int
}

func NewEventHub() *EventHub {
	return &EventHub{
		subscribers: make(map[int]chan models.DeliveryLogEntry),
	}
}

// Subscribe registers a new listener. The returned cancel function must be
// called to release the subscription; after it returns the channel is closed.
func (h *EventHub) Subscribe() (<-chan models.DeliveryLogEntry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan models.DeliveryLogEntry, subscriberBufferSize)
	h.subscribers[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers an entry to every subscriber, dropping it for any
// subscriber whose buffer is full.
func (h *EventHub) Publish(entry models.DeliveryLogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
