package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writegeist/readalong-server/internal/domain"
	domainerrors "github.com/writegeist/readalong-server/internal/errors"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChapterCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	chapter := domain.NewChapter("chp-1", "Chapter One", "It was a dark and stormy night.")
	require.NoError(t, s.CreateChapter(ctx, chapter))

	got, err := s.GetChapter(ctx, "chp-1")
	require.NoError(t, err)
	assert.Equal(t, chapter.Title, got.Title)
	assert.Equal(t, chapter.Text, got.Text)

	got.Title = "Chapter One, Revised"
	got.Touch()
	require.NoError(t, s.UpdateChapter(ctx, got))

	updated, err := s.GetChapter(ctx, "chp-1")
	require.NoError(t, err)
	assert.Equal(t, "Chapter One, Revised", updated.Title)

	require.NoError(t, s.DeleteChapter(ctx, "chp-1"))
	_, err = s.GetChapter(ctx, "chp-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestChapterMetadataPersistence(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	chapter := domain.NewChapter("chp-1", "Chapter One", "Maren watched the storm roll in.")
	require.NoError(t, s.CreateChapter(ctx, chapter))

	// A fresh chapter carries no analysis.
	got, err := s.GetChapter(ctx, "chp-1")
	require.NoError(t, err)
	assert.Nil(t, got.Metadata)

	got.Metadata = &domain.ChapterMetadata{
		Characters:     []string{"Maren", "Tomas"},
		Locations:      []string{"the lighthouse"},
		POV:            "third_limited",
		Sentiment:      "tense",
		Tone:           "foreboding",
		WordCount:      6,
		ReadingMinutes: 1,
	}
	got.Touch()
	require.NoError(t, s.UpdateChapter(ctx, got))

	reloaded, err := s.GetChapter(ctx, "chp-1")
	require.NoError(t, err)
	require.NotNil(t, reloaded.Metadata)
	assert.Equal(t, []string{"Maren", "Tomas"}, reloaded.Metadata.Characters)
	assert.Equal(t, "foreboding", reloaded.Metadata.Tone)

	listed, err := s.ListChapters(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Metadata)
	assert.Equal(t, "third_limited", listed[0].Metadata.POV)

	// Clearing the analysis round-trips too.
	reloaded.Metadata = nil
	require.NoError(t, s.UpdateChapter(ctx, reloaded))
	cleared, err := s.GetChapter(ctx, "chp-1")
	require.NoError(t, err)
	assert.Nil(t, cleared.Metadata)
}

func TestChapter_NotFound(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetChapter(ctx, "chp-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = s.UpdateChapter(ctx, domain.NewChapter("chp-missing", "x", "y"))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = s.DeleteChapter(ctx, "chp-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestListChapters_Order(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := domain.NewChapter("chp-1", "First", "text one")
	require.NoError(t, s.CreateChapter(ctx, first))

	second := domain.NewChapter("chp-2", "Second", "text two")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	require.NoError(t, s.CreateChapter(ctx, second))

	chapters, err := s.ListChapters(ctx)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, "chp-1", chapters[0].ID)
	assert.Equal(t, "chp-2", chapters[1].ID)
}

func TestAudioLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	chapter := domain.NewChapter("chp-1", "Chapter One", "some narration text")
	require.NoError(t, s.CreateChapter(ctx, chapter))

	record := domain.NewChapterAudio("aud-1", "chp-1")
	require.NoError(t, s.CreateAudioRecord(ctx, record))

	got, err := s.GetLatestAudio(ctx, "chp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AudioStatusPending, got.Status)

	require.NoError(t, s.UpdateAudioStatus(ctx, "aud-1", domain.AudioStatusProcessing, "", 0))
	got, err = s.GetLatestAudio(ctx, "chp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AudioStatusProcessing, got.Status)
	assert.Empty(t, got.AudioURL)

	require.NoError(t, s.UpdateAudioStatus(ctx, "aud-1", domain.AudioStatusCompleted, "/audio/aud-1.mp3", 93.5))
	got, err = s.GetLatestAudio(ctx, "chp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AudioStatusCompleted, got.Status)
	assert.Equal(t, "/audio/aud-1.mp3", got.AudioURL)
	assert.InDelta(t, 93.5, got.Duration, 1e-9)
}

func TestGetLatestAudio_PicksNewest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateChapter(ctx, domain.NewChapter("chp-1", "One", "text")))

	older := domain.NewChapterAudio("aud-1", "chp-1")
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.CreateAudioRecord(ctx, older))

	newer := domain.NewChapterAudio("aud-2", "chp-1")
	require.NoError(t, s.CreateAudioRecord(ctx, newer))

	got, err := s.GetLatestAudio(ctx, "chp-1")
	require.NoError(t, err)
	assert.Equal(t, "aud-2", got.ID)
}

func TestGetLatestAudio_NoneExists(t *testing.T) {
	s := testStore(t)

	_, err := s.GetLatestAudio(context.Background(), "chp-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDeleteChapter_CascadesAudio(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateChapter(ctx, domain.NewChapter("chp-1", "One", "text")))
	require.NoError(t, s.CreateAudioRecord(ctx, domain.NewChapterAudio("aud-1", "chp-1")))

	require.NoError(t, s.DeleteChapter(ctx, "chp-1"))

	_, err := s.GetLatestAudio(ctx, "chp-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCleanupOldAudio(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateChapter(ctx, domain.NewChapter("chp-1", "One", "text")))

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"aud-1", "aud-2", "aud-3"} {
		a := domain.NewChapterAudio(id, "chp-1")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateAudioRecord(ctx, a))
		require.NoError(t, s.UpdateAudioStatus(ctx, id, domain.AudioStatusCompleted, "/audio/"+id+".mp3", 10))
	}

	// Keep the two newest completed records; the oldest is returned for
	// file deletion.
	removed, err := s.CleanupOldAudio(ctx, 2)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "aud-1", removed[0].ID)

	got, err := s.GetLatestAudio(ctx, "chp-1")
	require.NoError(t, err)
	assert.Equal(t, "aud-3", got.ID)
}
