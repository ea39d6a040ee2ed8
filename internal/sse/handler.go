package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// heartbeatInterval keeps idle connections from being reaped by proxies.
const heartbeatInterval = 30 * time.Second

// Handler streams one topic's events to a client over SSE.
type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

// NewHandler creates a new SSE handler over the given hub.
func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{hub: hub, logger: logger}
}

// Stream serves the event stream for topic until the client disconnects or
// the topic is closed.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request, topic string) {
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	if err := rc.Flush(); err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, cancel := h.hub.Subscribe(topic)
	defer cancel()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-events:
			if !ok {
				// Topic closed server-side.
				return
			}
			if err := h.write(w, rc, event); err != nil {
				h.logger.Debug("SSE client write failed", "topic", topic, "error", err)
				return
			}

		case <-heartbeat.C:
			if err := h.write(w, rc, Event{Type: EventHeartbeat}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	return rc.Flush()
}
