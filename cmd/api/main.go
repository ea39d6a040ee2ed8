// Package main provides the entry point for the Readalong server application.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/di"
	"github.com/writegeist/readalong-server/internal/di/providers"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*slog.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// The stores use wrapper types, close them explicitly last so in-flight
	// handlers drained by the HTTP shutdown above can still reach them.
	if dbHandle, err := do.Invoke[*providers.DatabaseHandle](injector); err == nil {
		if err := dbHandle.Shutdown(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}
	if calHandle, err := do.Invoke[*providers.CalibrationStoreHandle](injector); err == nil {
		if err := calHandle.Shutdown(); err != nil {
			log.Error("Failed to close calibration store", "error", err)
		}
	}
	if indexHandle, err := do.Invoke[*providers.SearchIndexHandle](injector); err == nil {
		if err := indexHandle.Shutdown(); err != nil {
			log.Error("Failed to close search index", "error", err)
		}
	}

	log.Info("Goodnight, reader...")
}
