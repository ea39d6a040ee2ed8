package align

import "strings"

// Speech-rate adjustments applied multiplicatively per chunk. More than one
// may apply to the same chunk.
const (
	dialogueFactor = 0.9  // dialogue reads faster
	emphasisFactor = 1.1  // pause for emphasis after ? or !
	longFactor     = 1.05 // long chunks carry more micro-pauses
	shortFactor    = 0.8  // short exclamations read quickly

	longChunkWords  = 15
	shortChunkWords = 3

	sentencePause = 0.3 // after terminal punctuation
	phrasePause   = 0.1
)

// Estimate assigns start and end times to each chunk using a
// words-per-second model of the narration. The base rate is the whole text's
// word count divided by the total duration; each chunk's rate is adjusted
// for dialogue, emphasis, and length. Chunks are laid out in order with a
// pause after each, so the timeline sums to approximately, not exactly, the
// total duration. Calibration exists to correct that imprecision.
//
// Returns nil when the text has no words or the duration is not positive:
// no timings can be estimated.
func Estimate(chunks []string, text string, totalDuration float64) []TextChunk {
	totalWords := len(strings.Fields(text))
	if totalWords == 0 || totalDuration <= 0 {
		return nil
	}

	baseRate := float64(totalWords) / totalDuration // words per second

	out := make([]TextChunk, 0, len(chunks))
	current := 0.0

	for _, chunk := range chunks {
		words := len(strings.Fields(chunk))
		if words == 0 {
			continue
		}

		adjustment := 1.0
		if strings.Contains(chunk, `"`) {
			adjustment *= dialogueFactor
		}
		if strings.ContainsAny(chunk, "?!") {
			adjustment *= emphasisFactor
		}
		if words > longChunkWords {
			adjustment *= longFactor
		}
		if words <= shortChunkWords {
			adjustment *= shortFactor
		}

		duration := float64(words) / (baseRate * adjustment)

		out = append(out, TextChunk{
			Text:      chunk,
			StartTime: current,
			EndTime:   current + duration,
			Index:     len(out),
		})

		pause := phrasePause
		if endsInTerminal(chunk) {
			pause = sentencePause
		}
		current += duration + pause
	}

	return out
}

func endsInTerminal(s string) bool {
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
