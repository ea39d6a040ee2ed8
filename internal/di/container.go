// Package di provides dependency injection configuration for the Readalong server.
package di

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/config"
	"github.com/writegeist/readalong-server/internal/di/providers"
	"github.com/writegeist/readalong-server/internal/service"
	"github.com/writegeist/readalong-server/internal/sse"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideDatabase)
	do.Provide(injector, providers.ProvideCalibrationStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Eventing
	do.Provide(injector, providers.ProvideSSEHub)
	do.Provide(injector, providers.ProvideSSEHandler)

	// Narration backend
	do.Provide(injector, providers.ProvideTTSProvider)

	// Text analysis backend
	do.Provide(injector, providers.ProvideMetadataExtractor)

	// Business services
	do.Provide(injector, providers.ProvideSessionManager)
	do.Provide(injector, providers.ProvideChapterService)
	do.Provide(injector, providers.ProvideAlignmentService)
	do.Provide(injector, providers.ProvideNarrationService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*slog.Logger](injector)
	_ = do.MustInvoke[*providers.DatabaseHandle](injector)
	_ = do.MustInvoke[*providers.CalibrationStoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*sse.Hub](injector)
	_ = do.MustInvoke[*sse.Handler](injector)
	_ = do.MustInvoke[*providers.TTSProviderHandle](injector)
	_ = do.MustInvoke[*providers.MetadataExtractorHandle](injector)

	// Business services
	_ = do.MustInvoke[*providers.SessionManagerHandle](injector)
	_ = do.MustInvoke[*service.ChapterService](injector)
	_ = do.MustInvoke[*service.AlignmentService](injector)
	_ = do.MustInvoke[*service.NarrationService](injector)

	// Server last: it starts listening once everything is wired.
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
