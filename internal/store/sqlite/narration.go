package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/writegeist/readalong-server/internal/domain"
	domainerrors "github.com/writegeist/readalong-server/internal/errors"
)

// CreateAudioRecord inserts a narration record.
func (s *Store) CreateAudioRecord(ctx context.Context, a *domain.ChapterAudio) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chapter_audio (id, chapter_id, status, audio_url, duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ChapterID, a.Status, a.AudioURL, a.Duration, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audio record: %w", err)
	}
	return nil
}

// UpdateAudioStatus transitions a narration record. URL and duration are
// only written on completion.
func (s *Store) UpdateAudioStatus(ctx context.Context, id string, status domain.AudioStatus, audioURL string, duration float64) error {
	var err error
	if status == domain.AudioStatusCompleted {
		_, err = s.db.ExecContext(ctx, `
			UPDATE chapter_audio SET status = ?, audio_url = ?, duration = ?, updated_at = ?
			WHERE id = ?`,
			status, audioURL, duration, time.Now(), id,
		)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE chapter_audio SET status = ?, updated_at = ?
			WHERE id = ?`,
			status, time.Now(), id,
		)
	}
	if err != nil {
		return fmt.Errorf("update audio record: %w", err)
	}
	return nil
}

// GetLatestAudio returns the most recent narration record for a chapter.
func (s *Store) GetLatestAudio(ctx context.Context, chapterID string) (*domain.ChapterAudio, error) {
	var a domain.ChapterAudio
	err := s.db.QueryRowContext(ctx, `
		SELECT id, chapter_id, status, audio_url, duration, created_at, updated_at
		FROM chapter_audio
		WHERE chapter_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, chapterID,
	).Scan(&a.ID, &a.ChapterID, &a.Status, &a.AudioURL, &a.Duration, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("no narration for chapter %s", chapterID)
	}
	if err != nil {
		return nil, fmt.Errorf("select audio record: %w", err)
	}
	return &a, nil
}

// CleanupOldAudio deletes completed narration records beyond the newest
// keep entries and returns the removed records so the caller can delete
// their files.
func (s *Store) CleanupOldAudio(ctx context.Context, keep int) ([]*domain.ChapterAudio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chapter_id, status, audio_url, duration, created_at, updated_at
		FROM chapter_audio
		WHERE status = 'completed'
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select audio records: %w", err)
	}
	defer rows.Close()

	var removed []*domain.ChapterAudio
	i := 0
	for rows.Next() {
		var a domain.ChapterAudio
		if err := rows.Scan(&a.ID, &a.ChapterID, &a.Status, &a.AudioURL, &a.Duration, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan audio record: %w", err)
		}
		if i >= keep {
			removed = append(removed, &a)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, a := range removed {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM chapter_audio WHERE id = ?`, a.ID); err != nil {
			s.logger.Warn("failed to delete old audio record", "id", a.ID, "error", err)
		}
	}

	return removed, nil
}
