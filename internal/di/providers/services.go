package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/config"
	"github.com/writegeist/readalong-server/internal/readalong"
	"github.com/writegeist/readalong-server/internal/service"
	"github.com/writegeist/readalong-server/internal/sse"
)

// SessionManagerHandle wraps the read-along session manager with shutdown
// capability.
type SessionManagerHandle struct {
	*readalong.Manager
}

// Shutdown implements do.Shutdownable.
func (h *SessionManagerHandle) Shutdown() error {
	h.CloseAll()
	return nil
}

// ProvideSessionManager provides the read-along session manager.
func ProvideSessionManager(i do.Injector) (*SessionManagerHandle, error) {
	log := do.MustInvoke[*slog.Logger](i)
	return &SessionManagerHandle{Manager: readalong.NewManager(log)}, nil
}

// ProvideChapterService provides the chapter management service. A fresh
// search index is populated from the chapter store on first use.
func ProvideChapterService(i do.Injector) (*service.ChapterService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	extractor := do.MustInvoke[*MetadataExtractorHandle](i)
	log := do.MustInvoke[*slog.Logger](i)

	svc := service.NewChapterService(db.Store, index.Index, extractor.Extractor, log)

	count, err := index.Count()
	if err != nil {
		return nil, fmt.Errorf("count indexed chapters: %w", err)
	}
	if count == 0 {
		if err := svc.ReindexAll(context.Background()); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// ProvideAlignmentService provides the alignment and session service.
func ProvideAlignmentService(i do.Injector) (*service.AlignmentService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	calibration := do.MustInvoke[*CalibrationStoreHandle](i)
	sessions := do.MustInvoke[*SessionManagerHandle](i)
	hub := do.MustInvoke[*sse.Hub](i)
	log := do.MustInvoke[*slog.Logger](i)

	return service.NewAlignmentService(db.Store, calibration.Store, sessions.Manager, hub, log), nil
}

// ProvideNarrationService provides the narration generation service.
func ProvideNarrationService(i do.Injector) (*service.NarrationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	db := do.MustInvoke[*DatabaseHandle](i)
	ttsHandle := do.MustInvoke[*TTSProviderHandle](i)
	hub := do.MustInvoke[*sse.Hub](i)
	log := do.MustInvoke[*slog.Logger](i)

	return service.NewNarrationService(
		db.Store,
		ttsHandle.Provider,
		hub,
		cfg.Storage.AudioPath,
		cfg.Narration.KeepRecordings,
		log,
	), nil
}
