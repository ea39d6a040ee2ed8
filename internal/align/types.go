// Package align segments chapter text into timed chunks and reconciles the
// estimated timeline with user-supplied calibration points.
package align

import (
	"slices"
	"sort"
)

// TextChunk is a contiguous span of chapter text treated as one timed unit
// for read-along highlighting. Index is the stable 0-based position of the
// chunk in the ordered sequence; StartTime and EndTime are seconds into the
// narration.
type TextChunk struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Index     int     `json:"index"`
}

// Duration returns the chunk's length in seconds.
func (c TextChunk) Duration() float64 {
	return c.EndTime - c.StartTime
}

// Contains reports whether t falls inside the chunk's time interval.
// Both endpoints are inclusive.
func (c TextChunk) Contains(t float64) bool {
	return t >= c.StartTime && t <= c.EndTime
}

// CalibrationPoint is a user assertion that the chunk at TextIndex is being
// spoken at AudioTime seconds of playback.
type CalibrationPoint struct {
	TextIndex int     `json:"textIndex"`
	AudioTime float64 `json:"audioTime"`
}

// UpsertPoint returns a new slice with p inserted into points, keeping
// ascending TextIndex order. An existing point at the same index is replaced.
// The input slice is never mutated.
func UpsertPoint(points []CalibrationPoint, p CalibrationPoint) []CalibrationPoint {
	i := sort.Search(len(points), func(j int) bool {
		return points[j].TextIndex >= p.TextIndex
	})

	if i < len(points) && points[i].TextIndex == p.TextIndex {
		out := slices.Clone(points)
		out[i] = p
		return out
	}

	out := make([]CalibrationPoint, 0, len(points)+1)
	out = append(out, points[:i]...)
	out = append(out, p)
	out = append(out, points[i:]...)
	return out
}

// SortPoints returns a copy of points sorted ascending by TextIndex.
// Used to restore the invariant on records loaded from storage.
func SortPoints(points []CalibrationPoint) []CalibrationPoint {
	out := slices.Clone(points)
	slices.SortFunc(out, func(a, b CalibrationPoint) int {
		return a.TextIndex - b.TextIndex
	})
	return out
}
