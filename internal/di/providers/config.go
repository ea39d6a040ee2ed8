// Package providers contains dependency injection providers for the Readalong server.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/config"
	"github.com/writegeist/readalong-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Readalong Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.BasePath,
		"tts_provider", cfg.TTS.Provider,
	)

	return log, nil
}
