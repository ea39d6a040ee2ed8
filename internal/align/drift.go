package align

import (
	"math"
	"slices"
)

// minChunkDuration is the floor applied to corrected chunks so intervals
// never degenerate or invert.
const minChunkDuration = 0.1

// Correct recomputes chunk timings from calibration points. Between two
// bracketing points the base timeline is rescaled by the ratio of real to
// estimated elapsed time, which preserves relative chunk durations. Outside
// the bracketed span, timings are shifted by the constant offset of the
// nearest point. With fewer than two points the input is returned unchanged.
//
// The result is a fresh slice of equal length; Text and Index are never
// modified. This is a full pure recompute on every call rather than an
// incremental patch, so repeated corrections cannot accumulate error.
func Correct(chunks []TextChunk, points []CalibrationPoint) []TextChunk {
	if len(points) < 2 {
		return chunks
	}

	out := slices.Clone(chunks)

	for i := range out {
		before, after := bracket(points, i)

		ch := chunks[i]
		var start, end float64

		switch {
		case before != nil && after != nil:
			anchor := chunks[before.TextIndex].StartTime
			span := chunks[after.TextIndex].StartTime - anchor
			k := 1.0
			if span > 0 {
				k = (after.AudioTime - before.AudioTime) / span
			}
			start = before.AudioTime + (ch.StartTime-anchor)*k
			end = start + ch.Duration()*k

		case before != nil:
			offset := before.AudioTime - chunks[before.TextIndex].StartTime
			start = ch.StartTime + offset
			end = ch.EndTime + offset

		case after != nil:
			offset := after.AudioTime - chunks[after.TextIndex].StartTime
			start = ch.StartTime + offset
			end = ch.EndTime + offset

		default:
			start, end = ch.StartTime, ch.EndTime
		}

		if start < 0 {
			start = 0
		}
		if end-start < minChunkDuration {
			end = start + minChunkDuration
			// start+0.1 can round to a sum a hair under start by 0.1;
			// nudge up until the floor holds in float comparison.
			for end-start < minChunkDuration {
				end = math.Nextafter(end, math.Inf(1))
			}
		}

		out[i].StartTime = start
		out[i].EndTime = end
	}

	return out
}

// bracket finds the nearest point at or before index i and the nearest point
// strictly after it. Points must be sorted ascending by TextIndex.
func bracket(points []CalibrationPoint, i int) (before, after *CalibrationPoint) {
	for j := range points {
		if points[j].TextIndex <= i {
			before = &points[j]
		} else {
			after = &points[j]
			break
		}
	}
	return before, after
}
