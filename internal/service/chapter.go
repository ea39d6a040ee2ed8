package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/writegeist/readalong-server/internal/domain"
	domainerrors "github.com/writegeist/readalong-server/internal/errors"
	"github.com/writegeist/readalong-server/internal/id"
	"github.com/writegeist/readalong-server/internal/metadata"
	"github.com/writegeist/readalong-server/internal/search"
	"github.com/writegeist/readalong-server/internal/store/sqlite"
)

// ChapterService handles chapter text management, search, and metadata
// extraction.
type ChapterService struct {
	db        *sqlite.Store
	index     *search.Index
	extractor metadata.Extractor
	logger    *slog.Logger
}

// NewChapterService creates a new chapter service. extractor may be nil
// when metadata extraction is not configured.
func NewChapterService(
	db *sqlite.Store,
	index *search.Index,
	extractor metadata.Extractor,
	logger *slog.Logger,
) *ChapterService {
	return &ChapterService{
		db:        db,
		index:     index,
		extractor: extractor,
		logger:    logger,
	}
}

// CreateChapterRequest contains the data for a new chapter.
type CreateChapterRequest struct {
	Title string `json:"title" validate:"required,max=512"`
	Text  string `json:"text" validate:"required"`
}

// UpdateChapterRequest contains editable chapter fields.
type UpdateChapterRequest struct {
	Title *string `json:"title" validate:"omitempty,max=512"`
	Text  *string `json:"text"`
}

// Create validates the request and stores a new chapter.
func (s *ChapterService) Create(ctx context.Context, req CreateChapterRequest) (*domain.Chapter, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	chapterID, err := id.Generate("chp")
	if err != nil {
		return nil, fmt.Errorf("generate chapter ID: %w", err)
	}

	chapter := domain.NewChapter(chapterID, req.Title, req.Text)
	if err := s.db.CreateChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	s.indexChapter(chapter)

	s.logger.Info("chapter created", "chapter_id", chapter.ID, "title", chapter.Title)
	return chapter, nil
}

// Get returns a chapter by ID.
func (s *ChapterService) Get(ctx context.Context, chapterID string) (*domain.Chapter, error) {
	return s.db.GetChapter(ctx, chapterID)
}

// List returns all chapters ordered by creation time.
func (s *ChapterService) List(ctx context.Context) ([]*domain.Chapter, error) {
	return s.db.ListChapters(ctx)
}

// Update applies the non-nil fields of req to an existing chapter.
func (s *ChapterService) Update(ctx context.Context, chapterID string, req UpdateChapterRequest) (*domain.Chapter, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	chapter, err := s.db.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		chapter.Title = *req.Title
	}
	if req.Text != nil {
		chapter.Text = *req.Text
		// Edited text invalidates the previous analysis.
		chapter.Metadata = nil
	}
	chapter.Touch()

	if err := s.db.UpdateChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("update chapter: %w", err)
	}
	s.indexChapter(chapter)
	return chapter, nil
}

// Delete removes a chapter and its audio records.
func (s *ChapterService) Delete(ctx context.Context, chapterID string) error {
	if err := s.db.DeleteChapter(ctx, chapterID); err != nil {
		return err
	}
	if err := s.index.DeleteChapter(chapterID); err != nil {
		s.logger.Warn("failed to remove chapter from search index",
			"chapter_id", chapterID, "error", err)
	}
	s.logger.Info("chapter deleted", "chapter_id", chapterID)
	return nil
}

// Search runs a full-text query over chapter titles and text.
func (s *ChapterService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	if params.Query == "" {
		return nil, domainerrors.Validation("search query must not be empty")
	}
	return s.index.Search(ctx, params)
}

// ExtractMetadata analyzes a chapter's text and persists the result on the
// chapter. Re-running replaces the previous analysis.
func (s *ChapterService) ExtractMetadata(ctx context.Context, chapterID string) (*domain.Chapter, error) {
	if s.extractor == nil {
		return nil, domainerrors.Internal("no metadata extractor configured")
	}

	chapter, err := s.db.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	m, err := s.extractor.Extract(ctx, chapter.Title, chapter.Text)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}

	chapter.Metadata = m
	chapter.Touch()
	if err := s.db.UpdateChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}

	s.logger.Info("chapter metadata extracted",
		"chapter_id", chapter.ID,
		"characters", len(m.Characters),
		"locations", len(m.Locations),
		"pov", m.POV,
	)
	return chapter, nil
}

// ReindexAll rebuilds the search index from the chapter store. Called on
// startup when the on-disk index was dropped for a mapping change.
func (s *ChapterService) ReindexAll(ctx context.Context) error {
	chapters, err := s.db.ListChapters(ctx)
	if err != nil {
		return fmt.Errorf("list chapters for reindex: %w", err)
	}
	if err := s.index.IndexChapters(chapters); err != nil {
		return fmt.Errorf("reindex chapters: %w", err)
	}
	s.logger.Info("chapter search index rebuilt", "chapters", len(chapters))
	return nil
}

// indexChapter updates the search index after a successful write. Index
// failures are logged, not surfaced; the store stays the source of truth
// and a reindex repairs the divergence.
func (s *ChapterService) indexChapter(c *domain.Chapter) {
	if err := s.index.IndexChapter(c); err != nil {
		s.logger.Warn("failed to index chapter", "chapter_id", c.ID, "error", err)
	}
}
