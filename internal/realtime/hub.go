package realtime

import (
	"sync"

	"github.com/yourname/timetracker/internal"
)

const subscriberBuffer = 16

// Hub is the in-process Broadcaster. Each subscriber owns a buffered
// channel; a full buffer drops the event rather than blocking the
// publisher, keeping delivery strictly best-effort.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{} // userID -> channels
	logger      internal.Logger
}

func NewHub(logger internal.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new session for the user. The returned cancel
// func must be called when the session ends; it closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan Event]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[userID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.subscribers, userID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Publish(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default:
			h.logger.Debugf("dropping %s event for user %s: subscriber buffer full", event.Type, userID)
		}
	}
}

var _ Broadcaster = (*Hub)(nil)
