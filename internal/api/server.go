// Package api provides the HTTP API server and handlers for the Readalong application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/writegeist/readalong-server/internal/http/response"
	"github.com/writegeist/readalong-server/internal/service"
	"github.com/writegeist/readalong-server/internal/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	chapterService   *service.ChapterService
	alignmentService *service.AlignmentService
	narrationService *service.NarrationService
	sseHandler       *sse.Handler
	narrationLimiter *RateLimiter
	audioDir         string
	router           *chi.Mux
	logger           *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// narrationPerMinute caps generation requests per client IP.
func NewServer(
	chapterService *service.ChapterService,
	alignmentService *service.AlignmentService,
	narrationService *service.NarrationService,
	sseHandler *sse.Handler,
	audioDir string,
	narrationPerMinute int,
	logger *slog.Logger,
) *Server {
	s := &Server{
		chapterService:   chapterService,
		alignmentService: alignmentService,
		narrationService: narrationService,
		sseHandler:       sseHandler,
		narrationLimiter: NewRateLimiter(narrationPerMinute, time.Minute, 2),
		audioDir:         audioDir,
		router:           chi.NewRouter(),
		logger:           logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Generated narration files.
	s.router.Handle("/audio/*", http.StripPrefix("/audio/", http.FileServer(http.Dir(s.audioDir))))

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Chapters.
		r.Route("/chapters", func(r chi.Router) {
			r.Post("/", s.handleCreateChapter)
			r.Get("/", s.handleListChapters)
			r.Get("/search", s.handleSearchChapters)
			r.Get("/{id}", s.handleGetChapter)
			r.Patch("/{id}", s.handleUpdateChapter)
			r.Delete("/{id}", s.handleDeleteChapter)

			// Alignment preview without a session.
			r.Get("/{id}/alignment", s.handlePreviewAlignment)

			// Text analysis.
			r.Post("/{id}/metadata", s.handleExtractMetadata)

			// Narration generation.
			r.Route("/{id}/narration", func(r chi.Router) {
				r.With(RateLimitMiddleware(s.narrationLimiter, s.logger)).Post("/", s.handleGenerateNarration)
				r.Get("/", s.handleNarrationStatus)
			})
		})

		// Read-along sessions.
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleOpenSession)
			r.Get("/{id}", s.handleGetSessionState)
			r.Post("/{id}/events", s.handleSessionEvent)
			r.Delete("/{id}", s.handleCloseSession)
			r.Get("/{id}/stream", s.handleSessionStream)
		})

		// Narration status stream (all chapters).
		r.Get("/narration/stream", s.handleNarrationStream)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
