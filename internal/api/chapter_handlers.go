package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/writegeist/readalong-server/internal/http/response"
	"github.com/writegeist/readalong-server/internal/search"
	"github.com/writegeist/readalong-server/internal/service"
)

// handleCreateChapter stores a new chapter.
func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	var req service.CreateChapterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	chapter, err := s.chapterService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, chapter, s.logger)
}

// handleListChapters returns all chapters.
func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.chapterService.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, chapters, s.logger)
}

// handleGetChapter returns one chapter.
func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	chapter, err := s.chapterService.Get(r.Context(), chapterID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, chapter, s.logger)
}

// handleUpdateChapter applies partial updates to a chapter.
func (s *Server) handleUpdateChapter(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	var req service.UpdateChapterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	chapter, err := s.chapterService.Update(r.Context(), chapterID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, chapter, s.logger)
}

// handleDeleteChapter removes a chapter.
func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	if err := s.chapterService.Delete(r.Context(), chapterID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleSearchChapters runs a full-text query over chapters.
// Query parameters: q (required), limit, offset, sort.
func (s *Server) handleSearchChapters(w http.ResponseWriter, r *http.Request) {
	params := search.DefaultParams()
	params.Query = r.URL.Query().Get("q")

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			response.BadRequest(w, "limit must be an integer between 1 and 100", s.logger)
			return
		}
		params.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "offset must be a non-negative integer", s.logger)
			return
		}
		params.Offset = n
	}
	if v := r.URL.Query().Get("sort"); v != "" {
		params.SortBy = v
	}

	result, err := s.chapterService.Search(r.Context(), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleExtractMetadata analyzes a chapter's text and returns the chapter
// with the stored analysis.
func (s *Server) handleExtractMetadata(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	chapter, err := s.chapterService.ExtractMetadata(r.Context(), chapterID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, chapter, s.logger)
}

// handlePreviewAlignment returns the timed chunk list for a chapter without
// opening a session. Requires a ?duration= query parameter in seconds.
func (s *Server) handlePreviewAlignment(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	duration, err := strconv.ParseFloat(r.URL.Query().Get("duration"), 64)
	if err != nil {
		response.BadRequest(w, "duration query parameter is required (seconds)", s.logger)
		return
	}

	chunks, err := s.alignmentService.Preview(r.Context(), chapterID, duration)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, chunks, s.logger)
}
