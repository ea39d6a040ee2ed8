package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"math"

	"github.com/writegeist/readalong-server/internal/domain"
	"github.com/writegeist/readalong-server/internal/util"
)

const calibrationPrefix = "calibration_"

// CalibrationKey derives the storage key for a chapter/recording pair. The
// key is a function of the chapter title and the rounded total duration
// only, so the same chapter with the same recording reuses its calibration
// while a re-generated narration of different length gets a fresh key.
func CalibrationKey(title string, totalDuration float64) string {
	return fmt.Sprintf("%s%s_%d", calibrationPrefix, util.SanitizeToken(title), int64(math.Round(totalDuration)))
}

// LoadCalibration reads the calibration record stored under key. A missing
// key returns nil. A record that fails to decode or has an unexpected shape
// is deleted and nil is returned; corruption is never surfaced to the
// caller, it just means "no calibration data".
func (s *Store) LoadCalibration(key string) *domain.CalibrationRecord {
	data, err := s.backend.Get([]byte(key))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("calibration read failed", "key", key, "error", err)
		}
		return nil
	}

	var rec domain.CalibrationRecord
	if err := json.Unmarshal(data, &rec); err != nil || !rec.Valid() {
		s.logger.Warn("removing corrupt calibration record", "key", key)
		if err := s.backend.Delete([]byte(key)); err != nil {
			s.logger.Warn("failed to remove corrupt calibration record", "key", key, "error", err)
		}
		return nil
	}

	return &rec
}

// SaveCalibration persists a calibration record. On a write failure it
// evicts roughly half of all stored calibration entries, oldest-first by key
// order, and retries exactly once. A second failure is logged and dropped:
// calibration degrades to session-only rather than blocking the caller.
func (s *Store) SaveCalibration(key string, rec *domain.CalibrationRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("failed to encode calibration record", "key", key, "error", err)
		return
	}

	err = s.backend.Set([]byte(key), data)
	if err == nil {
		return
	}

	s.logger.Warn("calibration write failed, evicting old entries", "key", key, "error", err)
	s.evictCalibrationEntries(key)

	if err := s.backend.Set([]byte(key), data); err != nil {
		s.logger.Warn("calibration write failed after eviction, keeping in memory only", "key", key, "error", err)
	}
}

// ClearCalibration removes the record stored under key. Best effort: a
// failed delete is logged, not raised.
func (s *Store) ClearCalibration(key string) {
	if err := s.backend.Delete([]byte(key)); err != nil && !errors.Is(err, ErrKeyNotFound) {
		s.logger.Warn("failed to clear calibration record", "key", key, "error", err)
	}
}

// evictCalibrationEntries deletes roughly half of the stored calibration
// records, sparing the key currently being written.
func (s *Store) evictCalibrationEntries(keep string) {
	keys, err := s.backend.Keys([]byte(calibrationPrefix))
	if err != nil {
		s.logger.Warn("failed to enumerate calibration keys for eviction", "error", err)
		return
	}

	evicted := 0
	for _, k := range keys {
		if evicted >= (len(keys)+1)/2 {
			break
		}
		if k == keep {
			continue
		}
		if err := s.backend.Delete([]byte(k)); err != nil {
			s.logger.Warn("failed to evict calibration record", "key", k, "error", err)
			continue
		}
		evicted++
	}

	s.logger.Info("evicted calibration records", "count", evicted, "total", len(keys))
}
