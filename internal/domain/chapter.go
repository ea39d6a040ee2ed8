package domain

import "time"

// Chapter is a unit of manuscript text with an optional narration recording.
type Chapter struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Text      string           `json:"text"`
	Metadata  *ChapterMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ChapterMetadata is analysis derived from chapter text: named entities,
// narrative point of view, and reading statistics.
type ChapterMetadata struct {
	Characters     []string `json:"characters"`
	Locations      []string `json:"locations"`
	POV            string   `json:"pov"`
	Sentiment      string   `json:"sentiment"`
	Tone           string   `json:"tone"`
	WordCount      int      `json:"word_count"`
	ReadingMinutes int      `json:"reading_minutes"`
}

// NewChapter creates a chapter with initialized timestamps.
func NewChapter(id, title, text string) *Chapter {
	now := time.Now()
	return &Chapter{
		ID:        id,
		Title:     title,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the modification timestamp.
func (c *Chapter) Touch() {
	c.UpdatedAt = time.Now()
}
