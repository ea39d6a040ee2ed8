package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/writegeist/readalong-server/internal/domain"
	domainerrors "github.com/writegeist/readalong-server/internal/errors"
)

// encodeMetadata serializes chapter metadata to its column form. Chapters
// without metadata store an empty string.
func encodeMetadata(m *domain.ChapterMetadata) (string, error) {
	if m == nil {
		return "", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}

// decodeMetadata parses the metadata column; an empty value means the
// chapter has not been analyzed.
func decodeMetadata(raw string) (*domain.ChapterMetadata, error) {
	if raw == "" {
		return nil, nil
	}
	var m domain.ChapterMetadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &m, nil
}

// CreateChapter inserts a new chapter.
func (s *Store) CreateChapter(ctx context.Context, c *domain.Chapter) error {
	meta, err := encodeMetadata(c.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chapters (id, title, text, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Text, meta, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chapter: %w", err)
	}
	return nil
}

// GetChapter retrieves a chapter by ID.
func (s *Store) GetChapter(ctx context.Context, id string) (*domain.Chapter, error) {
	var c domain.Chapter
	var meta string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, text, metadata, created_at, updated_at
		FROM chapters WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Text, &meta, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("chapter %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select chapter: %w", err)
	}
	if c.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateChapter persists title, text, and metadata changes.
func (s *Store) UpdateChapter(ctx context.Context, c *domain.Chapter) error {
	meta, err := encodeMetadata(c.Metadata)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE chapters SET title = ?, text = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		c.Title, c.Text, meta, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update chapter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainerrors.NotFoundf("chapter %s not found", c.ID)
	}
	return nil
}

// ListChapters returns all chapters ordered by creation time.
func (s *Store) ListChapters(ctx context.Context) ([]*domain.Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, text, metadata, created_at, updated_at
		FROM chapters ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*domain.Chapter
	for rows.Next() {
		var c domain.Chapter
		var meta string
		if err := rows.Scan(&c.ID, &c.Title, &c.Text, &meta, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		if c.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		chapters = append(chapters, &c)
	}
	return chapters, rows.Err()
}

// DeleteChapter removes a chapter and, via cascade, its narration records.
func (s *Store) DeleteChapter(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainerrors.NotFoundf("chapter %s not found", id)
	}
	return nil
}
