package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/writegeist/readalong-server/internal/align"
	domainerrors "github.com/writegeist/readalong-server/internal/errors"
	"github.com/writegeist/readalong-server/internal/normalize"
	"github.com/writegeist/readalong-server/internal/readalong"
	"github.com/writegeist/readalong-server/internal/sse"
	"github.com/writegeist/readalong-server/internal/store"
	"github.com/writegeist/readalong-server/internal/store/sqlite"
)

// AlignmentService builds timed chunk alignments for chapters and manages
// open read-along sessions. An alignment is derived on demand: normalize
// the chapter text, split it into chunks, distribute the narration
// duration across them, then apply any saved calibration.
type AlignmentService struct {
	db          *sqlite.Store
	calibration *store.Store
	sessions    *readalong.Manager
	hub         *sse.Hub
	logger      *slog.Logger
}

// NewAlignmentService creates a new alignment service.
func NewAlignmentService(
	db *sqlite.Store,
	calibration *store.Store,
	sessions *readalong.Manager,
	hub *sse.Hub,
	logger *slog.Logger,
) *AlignmentService {
	return &AlignmentService{
		db:          db,
		calibration: calibration,
		sessions:    sessions,
		hub:         hub,
		logger:      logger,
	}
}

// OpenSessionRequest contains the parameters for opening a read-along
// session. Duration overrides the stored narration duration; it is how
// clients play audio the server never generated.
type OpenSessionRequest struct {
	ChapterID string  `json:"chapter_id" validate:"required"`
	Duration  float64 `json:"duration" validate:"omitempty,gte=0"`
}

// SessionInfo is the handler-facing view of an open session.
type SessionInfo struct {
	SessionID string          `json:"session_id"`
	ChapterID string          `json:"chapter_id"`
	State     readalong.State `json:"state"`
}

// OpenSession builds an alignment for a chapter and registers a controller
// for it. Outbound controller signals are published on the session's SSE
// topic.
func (s *AlignmentService) OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	chapter, err := s.db.GetChapter(ctx, req.ChapterID)
	if err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration == 0 {
		audio, err := s.db.GetLatestAudio(ctx, chapter.ID)
		if err != nil {
			return nil, domainerrors.Validation("chapter has no narration; supply duration")
		}
		duration = audio.Duration
	}
	if duration <= 0 {
		return nil, domainerrors.Validation("duration must be positive")
	}

	text := normalize.Text(chapter.Text)
	pieces := align.Split(text, align.DefaultChunkOptions())
	chunks := align.Estimate(pieces, text, duration)
	if len(chunks) == 0 {
		return nil, domainerrors.Validation("chapter text produced no alignable chunks")
	}

	sessionID, err := readalong.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	key := store.CalibrationKey(chapter.Title, duration)
	ctrl := readalong.NewController(chunks, key, s.calibration, s.sessionCallbacks(sessionID), s.logger)
	session := s.sessions.Open(sessionID, chapter.ID, ctrl)

	s.logger.Info("read-along session opened",
		"session_id", session.ID,
		"chapter_id", chapter.ID,
		"chunks", len(chunks),
		"duration", duration,
	)

	return &SessionInfo{
		SessionID: session.ID,
		ChapterID: session.ChapterID,
		State:     ctrl.State(),
	}, nil
}

// sessionCallbacks routes controller signals onto the session's SSE topic.
func (s *AlignmentService) sessionCallbacks(sessionID string) readalong.Callbacks {
	return readalong.Callbacks{
		Seek: func(time float64) {
			s.hub.Publish(sessionID, sse.Event{Type: sse.EventSeek, Data: sse.SeekPayload{Time: time}})
		},
		ScrollTo: func(index int) {
			s.hub.Publish(sessionID, sse.Event{Type: sse.EventScrollTo, Data: sse.ChunkPayload{Index: index}})
		},
		ActiveChunk: func(index int) {
			s.hub.Publish(sessionID, sse.Event{Type: sse.EventActiveChunk, Data: sse.ChunkPayload{Index: index}})
		},
	}
}

// HandleEvent dispatches an inbound event to a session's controller and
// returns the resulting state.
func (s *AlignmentService) HandleEvent(sessionID string, ev readalong.Event) (*readalong.State, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.Controller.HandleEvent(ev)
	state := session.Controller.State()
	return &state, nil
}

// GetState returns a session's current state snapshot.
func (s *AlignmentService) GetState(sessionID string) (*readalong.State, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	state := session.Controller.State()
	return &state, nil
}

// CloseSession tears down a session and its SSE topic.
func (s *AlignmentService) CloseSession(sessionID string) error {
	if err := s.sessions.Close(sessionID); err != nil {
		return err
	}
	s.hub.CloseTopic(sessionID)
	return nil
}

// Preview builds an alignment without opening a session. Useful for
// inspecting chunking and timing for a chapter before narration exists.
func (s *AlignmentService) Preview(ctx context.Context, chapterID string, duration float64) ([]align.TextChunk, error) {
	if duration <= 0 {
		return nil, domainerrors.Validation("duration must be positive")
	}

	chapter, err := s.db.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	text := normalize.Text(chapter.Text)
	pieces := align.Split(text, align.DefaultChunkOptions())
	return align.Estimate(pieces, text, duration), nil
}
