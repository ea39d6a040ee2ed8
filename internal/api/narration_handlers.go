package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/writegeist/readalong-server/internal/http/response"
	"github.com/writegeist/readalong-server/internal/sse"
)

// handleGenerateNarration starts a background narration generation for a
// chapter and returns the pending record.
func (s *Server) handleGenerateNarration(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	record, err := s.narrationService.Generate(r.Context(), chapterID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Accepted(w, record, s.logger)
}

// handleNarrationStatus returns the most recent narration record for a
// chapter.
func (s *Server) handleNarrationStatus(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	record, err := s.narrationService.Status(r.Context(), chapterID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, record, s.logger)
}

// handleNarrationStream serves the SSE stream of narration status
// transitions across all chapters.
func (s *Server) handleNarrationStream(w http.ResponseWriter, r *http.Request) {
	s.sseHandler.Stream(w, r, sse.TopicNarration)
}
