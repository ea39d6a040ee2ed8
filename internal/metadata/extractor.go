// Package metadata extracts chapter analysis data through a language model:
// characters, locations, point of view, and tone.
package metadata

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/writegeist/readalong-server/internal/domain"
)

// readingWordsPerMinute is the reading rate used for the reading time
// estimate. Readers track text faster than narration runs.
const readingWordsPerMinute = 200

// Extractor analyzes chapter text and produces metadata.
type Extractor interface {
	// Name identifies the extractor in logs and status responses.
	Name() string
	// Extract analyzes the given chapter text.
	Extract(ctx context.Context, title, text string) (*domain.ChapterMetadata, error)
}

// ReadingStats fills the locally computable metadata fields.
func ReadingStats(text string, m *domain.ChapterMetadata) {
	m.WordCount = len(strings.Fields(text))
	m.ReadingMinutes = max(1, m.WordCount/readingWordsPerMinute)
}

// excerpt truncates text to at most limit bytes without cutting a rune,
// backing up to the last whitespace so the excerpt ends on a whole word.
func excerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	window := text[:cut]
	if i := strings.LastIndexFunc(window, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }); i > 0 {
		return window[:i]
	}
	return window
}
