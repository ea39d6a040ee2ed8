package domain

import "time"

// AudioStatus tracks a narration generation through its lifecycle.
type AudioStatus string

// Narration generation states.
const (
	AudioStatusPending    AudioStatus = "pending"
	AudioStatusProcessing AudioStatus = "processing"
	AudioStatusCompleted  AudioStatus = "completed"
	AudioStatusError      AudioStatus = "error"
)

// ChapterAudio is the record of one narration generation for a chapter.
// Duration is in seconds and estimated until the provider reports better.
type ChapterAudio struct {
	ID        string      `json:"id"`
	ChapterID string      `json:"chapter_id"`
	Status    AudioStatus `json:"status"`
	AudioURL  string      `json:"audio_url,omitempty"`
	Duration  float64     `json:"duration,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewChapterAudio creates a pending narration record.
func NewChapterAudio(id, chapterID string) *ChapterAudio {
	now := time.Now()
	return &ChapterAudio{
		ID:        id,
		ChapterID: chapterID,
		Status:    AudioStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the generation has finished, successfully or not.
func (a *ChapterAudio) Terminal() bool {
	return a.Status == AudioStatusCompleted || a.Status == AudioStatusError
}
