package sse

import (
	"log/slog"
	"sync"
)

// clientBuffer is the per-subscriber event buffer. A slow client drops
// events rather than blocking the publisher; read-along signals are
// ephemeral and the next tick supersedes them anyway.
const clientBuffer = 64

// Hub fans events out to subscribers grouped by topic (one topic per
// read-along session, plus the narration topic).
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		subs:   make(map[string]map[chan Event]struct{}),
		logger: logger,
	}
}

// Subscribe registers a listener on a topic. The returned cancel function
// must be called when the listener goes away.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, clientBuffer)

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan Event]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[topic]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, topic)
			}
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// Publish delivers an event to every subscriber of a topic. Never blocks:
// full client buffers drop the event.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[topic] {
		select {
		case ch <- event:
		default:
			h.logger.Debug("dropping event for slow client", "topic", topic, "type", event.Type)
		}
	}
}

// CloseTopic removes all subscribers of a topic, signalling each by closing
// its channel. Used when a read-along session is torn down.
func (h *Hub) CloseTopic(topic string) {
	h.mu.Lock()
	set := h.subs[topic]
	delete(h.subs, topic)
	h.mu.Unlock()

	for ch := range set {
		close(ch)
	}
}
