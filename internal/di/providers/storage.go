package providers

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/config"
	"github.com/writegeist/readalong-server/internal/store"
	"github.com/writegeist/readalong-server/internal/store/sqlite"
)

// DatabaseHandle wraps the SQLite store with shutdown capability.
type DatabaseHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *DatabaseHandle) Shutdown() error {
	return h.Close()
}

// ProvideDatabase provides the chapter database.
func ProvideDatabase(i do.Injector) (*DatabaseHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if err := os.MkdirAll(cfg.Storage.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.AudioPath, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}

	db, err := sqlite.Open(cfg.Storage.DatabasePath, log)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Storage.DatabasePath)

	return &DatabaseHandle{Store: db}, nil
}

// CalibrationStoreHandle wraps the calibration KV store with shutdown capability.
type CalibrationStoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *CalibrationStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideCalibrationStore provides the calibration persistence store.
func ProvideCalibrationStore(i do.Injector) (*CalibrationStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	kv, err := store.New(cfg.Storage.CalibrationPath, log)
	if err != nil {
		return nil, err
	}

	log.Info("Calibration store initialized", "path", cfg.Storage.CalibrationPath)

	return &CalibrationStoreHandle{Store: kv}, nil
}
