// Package sse implements Server-Sent Events for streaming read-along
// signals to a connected client.
package sse

// EventType represents the type of SSE event.
type EventType string

const (
	// EventActiveChunk reports an active-chunk transition.
	EventActiveChunk EventType = "readalong.active_chunk"
	// EventScrollTo asks the client to bring a chunk into view.
	EventScrollTo EventType = "readalong.scroll_to"
	// EventSeek asks the playback transport to move to a time.
	EventSeek EventType = "readalong.seek"
	// EventNarrationStatus reports a narration generation transition.
	EventNarrationStatus EventType = "narration.status"
	// EventHeartbeat is a connection keepalive.
	EventHeartbeat EventType = "heartbeat"
)

// TopicNarration is the hub topic for narration status transitions. Other
// topics are keyed by read-along session ID.
const TopicNarration = "narration"

// Event is one message on a session stream.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// ChunkPayload carries a chunk index.
type ChunkPayload struct {
	Index int `json:"index"`
}

// SeekPayload carries a playback time in seconds.
type SeekPayload struct {
	Time float64 `json:"time"`
}

// NarrationPayload carries a narration status transition.
type NarrationPayload struct {
	ChapterID string `json:"chapter_id"`
	Status    string `json:"status"`
}
