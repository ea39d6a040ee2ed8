package align

import (
	"regexp"
	"strings"
)

// ChunkOptions control the segment-size thresholds used by Split.
type ChunkOptions struct {
	// LongChunk is the length above which a segment is re-split on clause
	// boundaries.
	LongChunk int
	// MediumChunk is the length above which a dialogue segment is considered
	// for a quote-boundary split.
	MediumChunk int
	// MinChunk is the minimum viable chunk length; shorter fragments are
	// dropped.
	MinChunk int
}

// DefaultChunkOptions returns the thresholds tuned for chapter prose.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		LongChunk:   300,
		MediumChunk: 150,
		MinChunk:    5,
	}
}

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)

	// Boundary patterns capture two groups: the tail that stays with the left
	// piece and the capital letter that starts the right piece. Go's regexp
	// has no lookahead, so splitBoundary reassembles the pieces from the
	// submatch positions instead.
	sentenceRe = regexp.MustCompile(`([.!?]["']?)[ \t]+([A-Z])`)
	clauseRe   = regexp.MustCompile(`([,;:])[ \t]+([A-Z])`)
	dialogueRe = regexp.MustCompile(`(")[ \t]+([A-Z])`)
)

// Split segments normalized text into ordered, displayable speech segments.
// Sentence boundaries and paragraph breaks are the primary split points;
// overlong segments are re-split on clause boundaries, and medium-length
// dialogue segments on quote boundaries. Fragments shorter than the minimum
// viable length are dropped. Phrase boundaries track natural speech pauses
// far better than fixed-length windows, which is what keeps the estimated
// timings plausible without acoustic analysis.
func Split(text string, opts ChunkOptions) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var segments []string
	for _, para := range paragraphRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		segments = append(segments, splitBoundary(para, sentenceRe)...)
	}

	var out []string
	for _, seg := range segments {
		pieces := []string{seg}

		switch {
		case len(seg) > opts.LongChunk:
			pieces = splitBoundary(seg, clauseRe)
		case len(seg) > opts.MediumChunk && strings.Contains(seg, `"`):
			// Only take the dialogue split when it actually produces more
			// than one piece.
			if quoted := splitBoundary(seg, dialogueRe); len(quoted) > 1 {
				pieces = quoted
			}
		}

		for _, p := range pieces {
			if len(p) >= opts.MinChunk {
				out = append(out, p)
			}
		}
	}

	return out
}

// splitBoundary cuts s at every match of re, keeping the first submatch with
// the left piece and starting the right piece at the second submatch.
func splitBoundary(s string, re *regexp.Regexp) []string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return []string{strings.TrimSpace(s)}
	}

	parts := make([]string, 0, len(matches)+1)
	last := 0
	for _, m := range matches {
		// m[3] is the end of the boundary tail, m[4] the start of the capital.
		piece := strings.TrimSpace(s[last:m[3]])
		if piece != "" {
			parts = append(parts, piece)
		}
		last = m[4]
	}
	if piece := strings.TrimSpace(s[last:]); piece != "" {
		parts = append(parts, piece)
	}
	return parts
}
