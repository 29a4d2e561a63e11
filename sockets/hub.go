package sockets

import (
	"encoding/json"
	"sync"

	"github.com/vee2004/collaborative-todo-board/logging"
)

// Event is the wire envelope pushed to board subscribers.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Hub is the board's subscriber registry. It is created at service start,
// torn down at shutdown, and exposes only Publish and Subscribe. Delivery
// is best-effort: a subscriber whose buffer is full misses the event and
// reconciles with a full state pull.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
	closed      bool
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan []byte]struct{}),
	}
}

const subscriberBuffer = 32

// Subscribe registers a new board observer and returns its event channel
// plus an unsubscribe function. The channel is closed on unsubscribe and
// on hub shutdown.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish fans an event out to every subscriber connected right now. It
// never blocks and never fails the caller: a full subscriber buffer drops
// the event for that subscriber only.
func (h *Hub) Publish(event string, payload interface{}) {
	data, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		logging.Logger.Errorf("Event ID: BROADCAST_ENCODE_FAILED, Description: Failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			logging.Logger.Warnf("Event ID: BROADCAST_DROPPED, Description: Dropped %s event for a slow subscriber.", event)
		}
	}
}

// Close tears the registry down and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}
