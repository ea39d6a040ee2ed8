package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writegeist/readalong-server/internal/align"
)

func TestCalibrationRecord_Valid(t *testing.T) {
	tests := []struct {
		name   string
		record CalibrationRecord
		want   bool
	}{
		{
			"current version with points",
			CalibrationRecord{Points: []align.CalibrationPoint{{TextIndex: 0, AudioTime: 1}}, Version: CalibrationRecordVersion},
			true,
		},
		{
			"empty points",
			CalibrationRecord{Version: CalibrationRecordVersion},
			true,
		},
		{
			"wrong version",
			CalibrationRecord{Version: 2},
			false,
		},
		{
			"negative text index",
			CalibrationRecord{Points: []align.CalibrationPoint{{TextIndex: -1, AudioTime: 1}}, Version: CalibrationRecordVersion},
			false,
		},
		{
			"negative audio time",
			CalibrationRecord{Points: []align.CalibrationPoint{{TextIndex: 0, AudioTime: -0.5}}, Version: CalibrationRecordVersion},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.Valid())
		})
	}
}

func TestCalibrationRecord_ClampPoints(t *testing.T) {
	rec := NewCalibrationRecord([]align.CalibrationPoint{
		{TextIndex: 9, AudioTime: 30},
		{TextIndex: 2, AudioTime: 5},
		{TextIndex: 4, AudioTime: 12},
	}, 30)

	rec.ClampPoints(5)

	require.Len(t, rec.Points, 2)
	assert.Equal(t, 2, rec.Points[0].TextIndex)
	assert.Equal(t, 4, rec.Points[1].TextIndex)
}

func TestChapterAudio_Terminal(t *testing.T) {
	assert.False(t, (&ChapterAudio{Status: AudioStatusPending}).Terminal())
	assert.False(t, (&ChapterAudio{Status: AudioStatusProcessing}).Terminal())
	assert.True(t, (&ChapterAudio{Status: AudioStatusCompleted}).Terminal())
	assert.True(t, (&ChapterAudio{Status: AudioStatusError}).Terminal())
}
