// Package tts generates narration audio for chapter text.
package tts

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// averageWordsPerMinute is the speaking rate used to estimate narration
// length when a provider cannot report the real duration.
const averageWordsPerMinute = 150

// Audio is the result of a narration generation call.
type Audio struct {
	// Data is the encoded audio (MP3).
	Data []byte
	// Duration is the narration length in seconds, estimated from the text
	// unless the provider reports it.
	Duration float64
}

// Provider generates spoken audio for a block of text.
type Provider interface {
	// Name identifies the provider in logs and status responses.
	Name() string
	// Generate synthesizes narration for the given text.
	Generate(ctx context.Context, text string) (Audio, error)
}

// EstimateDuration approximates narration length in seconds at an average
// speaking rate of 150 words per minute.
func EstimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	return float64(words) / averageWordsPerMinute * 60
}

// splitForRequest cuts text into pieces no longer than limit bytes.
// Cuts land on the last whitespace inside the window when one exists,
// otherwise on a rune boundary; a cut never lands inside a rune.
// Providers with per-request input limits concatenate the resulting audio.
func splitForRequest(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	for len(text) > limit {
		cut := splitPoint(text, limit)
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// splitPoint returns the largest cut offset at most limit that does not land
// inside a rune, preferring the position after the last whitespace run in the
// window so words stay intact across requests.
func splitPoint(text string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	window := text[:cut]
	if i := strings.LastIndexFunc(window, unicode.IsSpace); i > 0 {
		_, width := utf8.DecodeRuneInString(window[i:])
		return i + width
	}
	if cut == 0 {
		// A single rune wider than the limit still has to go somewhere.
		_, width := utf8.DecodeRuneInString(text)
		return width
	}
	return cut
}
