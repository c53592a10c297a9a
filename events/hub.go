package events

import (
	"sync"
	"sync/atomic"
)

// defaultSignalBufferSize is the buffer size for event channels.
// Subscribers that can't keep up will have events dropped (non-blocking send).
const defaultSignalBufferSize = 64

// subscription represents a single subscriber.
type subscription struct {
	id     uint64
	kinds  []Kind
	ch     chan Event
	closed atomic.Bool
}

// matches checks if the kind matches this subscription's filter.
func (s *subscription) matches(kind Kind) bool {
	// nil or empty = all kinds
	if len(s.kinds) == 0 {
		return true
	}
	for _, k := range s.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// close closes the subscription channel if not already closed.
func (s *subscription) close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Hub is a thread-safe in-process fan-out for mutation events. Sink workers
// and tests subscribe to it; the content service publishes into it.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[uint64]*subscription
	nextID        atomic.Uint64
}

// NewHub creates a new mutation event hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[uint64]*subscription),
	}
}

// Publish sends the event to all matching subscribers (non-blocking).
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscriptions {
		if !sub.matches(event.Kind) {
			continue
		}

		// Non-blocking send - drop if buffer full
		select {
		case sub.ch <- event:
		default:
			// Buffer full, skip this subscriber
		}
	}
}

// Subscribe creates a new subscription and returns the event channel and
// cancel function. Empty kinds subscribes to everything. If the subscriber
// cannot keep up, events are dropped silently by Publish(). The cancel
// function is idempotent.
func (h *Hub) Subscribe(kinds ...Kind) (<-chan Event, func()) {
	sub := &subscription{
		id:    h.nextID.Add(1),
		kinds: kinds,
		ch:    make(chan Event, defaultSignalBufferSize),
	}

	h.mu.Lock()
	h.subscriptions[sub.id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.unsubscribe(sub.id)
	}

	return sub.ch, cancel
}

// unsubscribe removes a subscription and closes its channel.
func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	sub, ok := h.subscriptions[id]
	if ok {
		delete(h.subscriptions, id)
	}
	h.mu.Unlock()

	if ok {
		sub.close()
	}
}
