package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/writegeist/readalong-server/internal/http/response"
	"github.com/writegeist/readalong-server/internal/readalong"
	"github.com/writegeist/readalong-server/internal/service"
)

// handleOpenSession builds an alignment for a chapter and opens a
// read-along session over it.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req service.OpenSessionRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	info, err := s.alignmentService.OpenSession(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, info, s.logger)
}

// handleGetSessionState returns a session's current state snapshot.
func (s *Server) handleGetSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	state, err := s.alignmentService.GetState(sessionID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, state, s.logger)
}

// SessionEventRequest is one inbound controller event. Type selects the
// event; the other fields apply only where noted.
type SessionEventRequest struct {
	// Type is one of: time_update, chunk_click, enter_calibration,
	// exit_calibration, undo, clear, set_auto_scroll.
	Type string `json:"type"`
	// Time is the playback position in seconds (time_update).
	Time float64 `json:"time"`
	// Index is the clicked chunk (chunk_click).
	Index int `json:"index"`
	// Enabled toggles auto-scroll (set_auto_scroll).
	Enabled bool `json:"enabled"`
}

// handleSessionEvent dispatches an event to a session's controller and
// returns the resulting state.
func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req SessionEventRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	var ev readalong.Event
	switch req.Type {
	case "time_update":
		ev = readalong.TimeUpdate{Time: req.Time}
	case "chunk_click":
		ev = readalong.ChunkClick{Index: req.Index}
	case "enter_calibration":
		ev = readalong.EnterCalibration{}
	case "exit_calibration":
		ev = readalong.ExitCalibration{}
	case "undo":
		ev = readalong.Undo{}
	case "clear":
		ev = readalong.Clear{}
	case "set_auto_scroll":
		ev = readalong.SetAutoScroll{Enabled: req.Enabled}
	default:
		response.BadRequest(w, "Unknown event type: "+req.Type, s.logger)
		return
	}

	state, err := s.alignmentService.HandleEvent(sessionID, ev)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, state, s.logger)
}

// handleCloseSession tears down a session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := s.alignmentService.CloseSession(sessionID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleSessionStream serves the SSE stream of outbound controller signals
// for one session.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	// Reject streams for sessions that don't exist.
	if _, err := s.alignmentService.GetState(sessionID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.sseHandler.Stream(w, r, sessionID)
}
