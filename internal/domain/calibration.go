package domain

import (
	"github.com/writegeist/readalong-server/internal/align"
)

// CalibrationRecordVersion is the current persisted calibration format.
const CalibrationRecordVersion = 1

// CalibrationRecord is the persisted calibration state for one
// chapter/recording pair. Points are kept sorted ascending by text index.
type CalibrationRecord struct {
	Points   []align.CalibrationPoint `json:"points"`
	LastSync float64                  `json:"lastSync"`
	Version  int                      `json:"version"`
}

// NewCalibrationRecord creates a record at the current format version.
func NewCalibrationRecord(points []align.CalibrationPoint, lastSync float64) *CalibrationRecord {
	return &CalibrationRecord{
		Points:   points,
		LastSync: lastSync,
		Version:  CalibrationRecordVersion,
	}
}

// Valid reports whether a decoded record has the expected shape. Records
// failing this check are treated as corrupt and discarded.
func (r *CalibrationRecord) Valid() bool {
	if r.Version != CalibrationRecordVersion {
		return false
	}
	for _, p := range r.Points {
		if p.TextIndex < 0 || p.AudioTime < 0 {
			return false
		}
	}
	return true
}

// ClampPoints drops points whose text index no longer fits the chunk count
// and restores sorted order. Chunk lists can shrink between sessions when
// the chapter text was edited.
func (r *CalibrationRecord) ClampPoints(chunkCount int) {
	kept := make([]align.CalibrationPoint, 0, len(r.Points))
	for _, p := range r.Points {
		if p.TextIndex < chunkCount {
			kept = append(kept, p)
		}
	}
	r.Points = align.SortPoints(kept)
}
