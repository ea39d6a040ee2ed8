package tts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestEstimateDuration(t *testing.T) {
	// 150 words at 150 wpm is one minute.
	text := strings.TrimSpace(strings.Repeat("word ", 150))
	assert.InDelta(t, 60.0, EstimateDuration(text), 1e-9)

	assert.Zero(t, EstimateDuration(""))
	assert.InDelta(t, 0.4, EstimateDuration("one"), 1e-9)
}

func TestSplitForRequest(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"under limit", "hello", 10, []string{"hello"}},
		{"at limit", "hello", 5, []string{"hello"}},
		{"even split", "aabbcc", 2, []string{"aa", "bb", "cc"}},
		{"remainder", "aabbc", 2, []string{"aa", "bb", "c"}},
		{"empty", "", 10, []string{""}},
		{"cuts after whitespace", "ab cd ef gh", 5, []string{"ab ", "cd ", "ef gh"}},
		{"multibyte at boundary", "aéé", 3, []string{"aé", "é"}},
		{"rune wider than limit", "é", 1, []string{"é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitForRequest(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			for _, p := range got {
				assert.True(t, utf8.ValidString(p), "piece %q is not valid UTF-8", p)
			}
		})
	}
}

func TestSplitForRequest_NeverCutsMidRune(t *testing.T) {
	// A long run of two-byte runes lands a naive byte-offset cut inside a
	// rune at every odd limit.
	text := strings.Repeat("é", 500)
	for _, limit := range []int{3, 7, 100, 999} {
		var rebuilt strings.Builder
		for _, p := range splitForRequest(text, limit) {
			assert.True(t, utf8.ValidString(p), "limit %d produced invalid piece", limit)
			assert.LessOrEqual(t, len(p), limit)
			rebuilt.WriteString(p)
		}
		assert.Equal(t, text, rebuilt.String())
	}
}
