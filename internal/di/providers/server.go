package providers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/api"
	"github.com/writegeist/readalong-server/internal/config"
	"github.com/writegeist/readalong-server/internal/service"
	"github.com/writegeist/readalong-server/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	chapterService := do.MustInvoke[*service.ChapterService](i)
	alignmentService := do.MustInvoke[*service.AlignmentService](i)
	narrationService := do.MustInvoke[*service.NarrationService](i)
	sseHandler := do.MustInvoke[*sse.Handler](i)

	handler := api.NewServer(
		chapterService,
		alignmentService,
		narrationService,
		sseHandler,
		cfg.Storage.AudioPath,
		cfg.Narration.RequestsPerMinute,
		log,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
