package store

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writegeist/readalong-server/internal/align"
	"github.com/writegeist/readalong-server/internal/domain"
)

// memBackend is an in-memory Backend with switchable write failures.
type memBackend struct {
	data     map[string][]byte
	failSets int // fail this many Set calls before succeeding
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (m *memBackend) Set(key, value []byte) error {
	if m.failSets > 0 {
		m.failSets--
		return assert.AnError
	}
	m.data[string(key)] = value
	return nil
}

func (m *memBackend) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *memBackend) Keys(prefix []byte) ([]string, error) {
	var keys []string
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memBackend) Close() error { return nil }

func record(points ...align.CalibrationPoint) *domain.CalibrationRecord {
	return domain.NewCalibrationRecord(points, 12.5)
}

func TestCalibrationKey(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		duration float64
		want     string
	}{
		{"simple", "Chapter One", 120.2, "calibration_chapter-one_120"},
		{"rounds up", "Intro", 89.5, "calibration_intro_90"},
		{"messy title", "The  End?!", 60, "calibration_the-end_60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalibrationKey(tt.title, tt.duration))
		})
	}
}

func TestCalibration_SaveLoadRoundTrip(t *testing.T) {
	s := NewWithBackend(newMemBackend(), nil)
	key := CalibrationKey("Chapter One", 300)

	rec := record(align.CalibrationPoint{TextIndex: 2, AudioTime: 8.5})
	s.SaveCalibration(key, rec)

	got := s.LoadCalibration(key)
	require.NotNil(t, got)
	assert.Equal(t, rec.Points, got.Points)
	assert.Equal(t, rec.LastSync, got.LastSync)
	assert.Equal(t, domain.CalibrationRecordVersion, got.Version)
}

func TestCalibration_LoadMissing(t *testing.T) {
	s := NewWithBackend(newMemBackend(), nil)

	assert.Nil(t, s.LoadCalibration("calibration_nothing_10"))
}

func TestCalibration_CorruptRecordDeleted(t *testing.T) {
	backend := newMemBackend()
	s := NewWithBackend(backend, nil)
	key := "calibration_bad_10"

	backend.data[key] = []byte("{not json")

	assert.Nil(t, s.LoadCalibration(key))
	_, exists := backend.data[key]
	assert.False(t, exists, "corrupt record should be deleted")
}

func TestCalibration_WrongVersionDeleted(t *testing.T) {
	backend := newMemBackend()
	s := NewWithBackend(backend, nil)
	key := "calibration_old_10"

	backend.data[key] = []byte(`{"points":[],"lastSync":0,"version":99}`)

	assert.Nil(t, s.LoadCalibration(key))
	_, exists := backend.data[key]
	assert.False(t, exists)
}

func TestCalibration_EvictsOnWriteFailure(t *testing.T) {
	backend := newMemBackend()
	s := NewWithBackend(backend, nil)

	// Seed six existing records.
	keys := []string{
		"calibration_a_1", "calibration_b_2", "calibration_c_3",
		"calibration_d_4", "calibration_e_5", "calibration_f_6",
	}
	for _, k := range keys {
		s.SaveCalibration(k, record())
	}

	// First write fails, eviction runs, retry succeeds.
	backend.failSets = 1
	newKey := "calibration_new_7"
	s.SaveCalibration(newKey, record(align.CalibrationPoint{TextIndex: 0, AudioTime: 1}))

	require.NotNil(t, s.LoadCalibration(newKey), "retried write should have landed")

	// Roughly half of the seven keys present at eviction time are gone,
	// oldest-first by key order, sparing the one being written.
	assert.Nil(t, s.LoadCalibration("calibration_a_1"))
	assert.Nil(t, s.LoadCalibration("calibration_b_2"))
	assert.Nil(t, s.LoadCalibration("calibration_c_3"))
	assert.NotNil(t, s.LoadCalibration("calibration_e_5"))
	assert.NotNil(t, s.LoadCalibration("calibration_f_6"))
}

func TestCalibration_SecondWriteFailureDropped(t *testing.T) {
	backend := newMemBackend()
	s := NewWithBackend(backend, nil)

	backend.failSets = 2
	s.SaveCalibration("calibration_x_1", record())

	// Both attempts failed; nothing stored, nothing panicked.
	assert.Nil(t, s.LoadCalibration("calibration_x_1"))
}

func TestCalibration_Clear(t *testing.T) {
	s := NewWithBackend(newMemBackend(), nil)
	key := "calibration_gone_5"

	s.SaveCalibration(key, record())
	require.NotNil(t, s.LoadCalibration(key))

	s.ClearCalibration(key)
	assert.Nil(t, s.LoadCalibration(key))

	// Clearing a missing key is a no-op.
	s.ClearCalibration(key)
}
