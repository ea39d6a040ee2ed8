package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/writegeist/readalong-server/internal/domain"
	domainerrors "github.com/writegeist/readalong-server/internal/errors"
	"github.com/writegeist/readalong-server/internal/id"
	"github.com/writegeist/readalong-server/internal/normalize"
	"github.com/writegeist/readalong-server/internal/sse"
	"github.com/writegeist/readalong-server/internal/store/sqlite"
	"github.com/writegeist/readalong-server/internal/tts"
)

// minNarrationTextLen rejects requests whose chapter text is too short to
// narrate meaningfully.
const minNarrationTextLen = 10

// minAudioBytes is the smallest output accepted as valid audio. Provider
// error pages and truncated responses fall under it.
const minAudioBytes = 1024

// generationTimeout bounds one narration generation end to end.
const generationTimeout = 10 * time.Minute

// NarrationService generates chapter narration through a TTS provider.
// Generation runs in the background; clients poll status or watch the
// narration SSE topic.
type NarrationService struct {
	db       *sqlite.Store
	provider tts.Provider
	hub      *sse.Hub
	logger   *slog.Logger

	audioDir  string
	keepAudio int

	mu     sync.Mutex
	active map[string]struct{} // chapter IDs with a generation in flight
}

// NewNarrationService creates a new narration service. Audio files are
// written under audioDir; keepAudio bounds how many completed recordings
// are retained across all chapters.
func NewNarrationService(
	db *sqlite.Store,
	provider tts.Provider,
	hub *sse.Hub,
	audioDir string,
	keepAudio int,
	logger *slog.Logger,
) *NarrationService {
	return &NarrationService{
		db:        db,
		provider:  provider,
		hub:       hub,
		audioDir:  audioDir,
		keepAudio: keepAudio,
		logger:    logger,
		active:    make(map[string]struct{}),
	}
}

// Generate starts a narration generation for a chapter and returns the
// pending record. A second request for the same chapter while one is in
// flight is rejected.
func (s *NarrationService) Generate(ctx context.Context, chapterID string) (*domain.ChapterAudio, error) {
	if s.provider == nil {
		return nil, domainerrors.Internal("no TTS provider configured")
	}

	chapter, err := s.db.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	text := normalize.Text(chapter.Text)
	if len(text) < minNarrationTextLen {
		return nil, domainerrors.Validation("chapter text is too short to narrate")
	}

	s.mu.Lock()
	if _, busy := s.active[chapterID]; busy {
		s.mu.Unlock()
		return nil, domainerrors.Conflictf("narration already in progress for chapter %s", chapterID)
	}
	s.active[chapterID] = struct{}{}
	s.mu.Unlock()

	audioID, err := id.Generate("aud")
	if err != nil {
		s.release(chapterID)
		return nil, fmt.Errorf("generate audio ID: %w", err)
	}

	record := domain.NewChapterAudio(audioID, chapterID)
	if err := s.db.CreateAudioRecord(ctx, record); err != nil {
		s.release(chapterID)
		return nil, fmt.Errorf("create audio record: %w", err)
	}

	go s.run(record, text)

	return record, nil
}

// Status returns the most recent narration record for a chapter.
func (s *NarrationService) Status(ctx context.Context, chapterID string) (*domain.ChapterAudio, error) {
	return s.db.GetLatestAudio(ctx, chapterID)
}

// run performs one generation in the background. The record moves
// pending -> processing -> completed or error; every transition is
// persisted and published.
func (s *NarrationService) run(record *domain.ChapterAudio, text string) {
	defer s.release(record.ChapterID)

	ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
	defer cancel()

	s.transition(ctx, record, domain.AudioStatusProcessing, "", 0)

	audio, err := s.provider.Generate(ctx, text)
	if err != nil {
		s.logger.Error("narration generation failed",
			"chapter_id", record.ChapterID,
			"provider", s.provider.Name(),
			"error", err,
		)
		s.transition(ctx, record, domain.AudioStatusError, "", 0)
		return
	}
	if len(audio.Data) < minAudioBytes {
		s.logger.Error("narration output too small to be audio",
			"chapter_id", record.ChapterID,
			"bytes", len(audio.Data),
		)
		s.transition(ctx, record, domain.AudioStatusError, "", 0)
		return
	}

	filename := record.ID + ".mp3"
	path := filepath.Join(s.audioDir, filename)
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		s.logger.Error("failed to write narration file", "path", path, "error", err)
		s.transition(ctx, record, domain.AudioStatusError, "", 0)
		return
	}

	duration := audio.Duration
	if duration <= 0 {
		duration = tts.EstimateDuration(text)
	}

	s.transition(ctx, record, domain.AudioStatusCompleted, "/audio/"+filename, duration)
	s.logger.Info("narration generated",
		"chapter_id", record.ChapterID,
		"audio_id", record.ID,
		"bytes", len(audio.Data),
		"duration", duration,
	)

	s.cleanup(ctx)
}

// transition persists a status change and publishes it on the narration
// SSE topic.
func (s *NarrationService) transition(ctx context.Context, record *domain.ChapterAudio, status domain.AudioStatus, audioURL string, duration float64) {
	if err := s.db.UpdateAudioStatus(ctx, record.ID, status, audioURL, duration); err != nil {
		s.logger.Error("failed to update audio status", "audio_id", record.ID, "status", status, "error", err)
	}
	record.Status = status
	record.AudioURL = audioURL
	record.Duration = duration

	s.hub.Publish(sse.TopicNarration, sse.Event{
		Type: sse.EventNarrationStatus,
		Data: sse.NarrationPayload{ChapterID: record.ChapterID, Status: string(status)},
	})
}

// cleanup removes old completed recordings and their files.
func (s *NarrationService) cleanup(ctx context.Context) {
	removed, err := s.db.CleanupOldAudio(ctx, s.keepAudio)
	if err != nil {
		s.logger.Warn("audio cleanup failed", "error", err)
		return
	}
	for _, a := range removed {
		path := filepath.Join(s.audioDir, filepath.Base(a.AudioURL))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove old narration file", "path", path, "error", err)
		}
	}
	if len(removed) > 0 {
		s.logger.Debug("cleaned up old narration recordings", "count", len(removed))
	}
}

func (s *NarrationService) release(chapterID string) {
	s.mu.Lock()
	delete(s.active, chapterID)
	s.mu.Unlock()
}
