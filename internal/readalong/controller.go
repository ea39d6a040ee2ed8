// Package readalong keeps a chapter's text chunks in sync with narration
// playback. The Controller is the state machine that tracks the active
// chunk, records calibration points, and recomputes chunk timings whenever
// the calibration changes.
package readalong

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/writegeist/readalong-server/internal/align"
	"github.com/writegeist/readalong-server/internal/domain"
)

// Mode is the controller's calibration state.
type Mode string

// Controller modes.
const (
	ModeIdle        Mode = "idle"
	ModeCalibrating Mode = "calibrating"
)

// Accuracy is an advisory classification of how trustworthy the current
// chunk timings are, based on the time elapsed since the last calibration
// sync. It never alters the timings themselves.
type Accuracy string

// Accuracy levels.
const (
	AccuracyUnknown Accuracy = "unknown"
	AccuracyGood    Accuracy = "good"
	AccuracyFair    Accuracy = "fair"
	AccuracyPoor    Accuracy = "poor"
)

// Drift thresholds for the accuracy classification, in seconds.
const (
	accuracyGoodWithin = 30
	accuracyFairWithin = 60
)

// CalibrationStore is the persistence contract the controller writes
// through. Implementations swallow their own failures; every method is
// best-effort.
type CalibrationStore interface {
	LoadCalibration(key string) *domain.CalibrationRecord
	SaveCalibration(key string, rec *domain.CalibrationRecord)
	ClearCalibration(key string)
}

// Callbacks are the outbound signals the controller raises toward the host
// UI and the playback transport. Nil callbacks are ignored.
type Callbacks struct {
	// Seek asks the playback transport to move to a time in seconds.
	Seek func(time float64)
	// ScrollTo asks the UI to bring a chunk into view. Debounced.
	ScrollTo func(index int)
	// ActiveChunk reports active-chunk transitions; -1 means no chunk
	// contains the current time.
	ActiveChunk func(index int)
}

// Controller tracks playback against a chunk list for one open read-along
// view. Events arrive through HandleEvent and are processed strictly in
// order; all recomputation is synchronous.
type Controller struct {
	mu sync.Mutex

	base      []align.TextChunk // estimator output, never modified
	corrected []align.TextChunk // base with drift correction applied

	points  []align.CalibrationPoint
	history [][]align.CalibrationPoint

	mode            Mode
	autoScroll      bool
	savedAutoScroll bool

	currentTime float64
	lastSync    float64
	activeIndex int

	key    string
	store  CalibrationStore
	cb     Callbacks
	scroll *scrollScheduler
	logger *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithScrollDelay overrides the auto-scroll debounce delay. Tests use this
// to keep the debounce observable without real waiting.
func WithScrollDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.scroll = newScrollScheduler(d, c.cb.ScrollTo)
	}
}

// NewController creates a controller for the given chunk list, loading any
// previously saved calibration for key and applying it immediately.
func NewController(chunks []align.TextChunk, key string, store CalibrationStore, cb Callbacks, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Controller{
		base:        chunks,
		corrected:   chunks,
		mode:        ModeIdle,
		autoScroll:  true,
		activeIndex: -1,
		key:         key,
		store:       store,
		cb:          cb,
		logger:      logger,
	}
	c.scroll = newScrollScheduler(defaultScrollDelay, cb.ScrollTo)

	if rec := store.LoadCalibration(key); rec != nil {
		rec.ClampPoints(len(chunks))
		c.points = rec.Points
		c.lastSync = rec.LastSync
		c.corrected = align.Correct(c.base, c.points)
		logger.Debug("loaded calibration", "key", key, "points", len(c.points))
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// HandleEvent processes one inbound event. Events mutate controller state
// under a single lock so two rapid clicks cannot interleave and corrupt the
// undo history.
func (c *Controller) HandleEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case TimeUpdate:
		c.onTimeUpdate(e.Time)
	case ChunkClick:
		c.onChunkClick(e.Index)
	case EnterCalibration:
		c.onEnterCalibration()
	case ExitCalibration:
		c.onExitCalibration()
	case Undo:
		c.onUndo()
	case Clear:
		c.onClear()
	case SetAutoScroll:
		c.onSetAutoScroll(e.Enabled)
	}
}

func (c *Controller) onTimeUpdate(t float64) {
	c.currentTime = t

	index := c.findActiveChunk(t)
	if index == c.activeIndex {
		return
	}
	c.activeIndex = index

	if c.cb.ActiveChunk != nil {
		c.cb.ActiveChunk(index)
	}

	// Misclicks during calibration must not make the view jump around.
	if index >= 0 && c.autoScroll && c.mode != ModeCalibrating {
		c.scroll.Schedule(index)
	}
}

func (c *Controller) onChunkClick(index int) {
	if index < 0 || index >= len(c.corrected) {
		c.logger.Warn("chunk click out of range", "index", index, "chunks", len(c.corrected))
		return
	}

	if c.mode != ModeCalibrating {
		if c.cb.Seek != nil {
			c.cb.Seek(c.corrected[index].StartTime)
		}
		return
	}

	c.pushHistory()
	c.points = align.UpsertPoint(c.points, align.CalibrationPoint{
		TextIndex: index,
		AudioTime: c.currentTime,
	})
	c.lastSync = c.currentTime
	c.rebuild()
	c.persist()

	c.logger.Debug("calibration point recorded",
		"index", index,
		"audio_time", c.currentTime,
		"points", len(c.points),
	)
}

func (c *Controller) onEnterCalibration() {
	if c.mode == ModeCalibrating {
		return
	}
	c.savedAutoScroll = c.autoScroll
	c.autoScroll = false
	c.history = nil
	c.mode = ModeCalibrating
	c.scroll.Cancel()
}

func (c *Controller) onExitCalibration() {
	if c.mode != ModeCalibrating {
		return
	}
	c.autoScroll = c.savedAutoScroll
	c.mode = ModeIdle

	if len(c.points) >= 2 {
		c.lastSync = c.currentTime
		c.persist()
	}
}

func (c *Controller) onUndo() {
	if len(c.history) == 0 {
		return
	}
	c.points = c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
	c.rebuild()
	c.persist()
}

func (c *Controller) onClear() {
	c.pushHistory()
	c.points = nil

	if c.mode == ModeCalibrating {
		c.autoScroll = c.savedAutoScroll
	}
	c.mode = ModeIdle

	c.rebuild()
	c.store.ClearCalibration(c.key)
}

func (c *Controller) onSetAutoScroll(enabled bool) {
	if c.mode == ModeCalibrating {
		// Applied when calibration ends; auto-scroll stays off until then.
		c.savedAutoScroll = enabled
		return
	}
	c.autoScroll = enabled
}

// pushHistory snapshots the current point collection for undo.
func (c *Controller) pushHistory() {
	c.history = append(c.history, slices.Clone(c.points))
}

// rebuild recomputes the corrected chunk list from the base timings. Always
// a full pure recompute, never an incremental patch.
func (c *Controller) rebuild() {
	c.corrected = align.Correct(c.base, c.points)
}

// persist writes the calibration record through the store. Failures are the
// store's problem; calibration degrades to session-only.
func (c *Controller) persist() {
	c.store.SaveCalibration(c.key, domain.NewCalibrationRecord(slices.Clone(c.points), c.lastSync))
}

// findActiveChunk returns the lowest-index chunk whose interval contains t,
// or -1 if none does.
func (c *Controller) findActiveChunk(t float64) int {
	for _, ch := range c.corrected {
		if ch.Contains(t) {
			return ch.Index
		}
	}
	return -1
}

// Close cancels any in-flight debounce timers. No calibration data can be
// lost here: every point mutation was persisted with the mutation.
func (c *Controller) Close() {
	c.scroll.Cancel()
}

// State is a read-only snapshot of a controller.
type State struct {
	Mode        Mode                     `json:"mode"`
	AutoScroll  bool                     `json:"auto_scroll"`
	ActiveIndex int                      `json:"active_index"`
	Accuracy    Accuracy                 `json:"accuracy"`
	CurrentTime float64                  `json:"current_time"`
	LastSync    float64                  `json:"last_sync"`
	CanUndo     bool                     `json:"can_undo"`
	Chunks      []align.TextChunk        `json:"chunks"`
	Points      []align.CalibrationPoint `json:"points"`
}

// State returns a snapshot of the controller. Slices are copies; callers
// cannot reach the controller's internal state through them.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Mode:        c.mode,
		AutoScroll:  c.autoScroll,
		ActiveIndex: c.activeIndex,
		Accuracy:    c.accuracy(),
		CurrentTime: c.currentTime,
		LastSync:    c.lastSync,
		CanUndo:     len(c.history) > 0,
		Chunks:      slices.Clone(c.corrected),
		Points:      slices.Clone(c.points),
	}
}

// Accuracy classifies the current timing trust level.
func (c *Controller) Accuracy() Accuracy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accuracy()
}

func (c *Controller) accuracy() Accuracy {
	if len(c.points) == 0 {
		return AccuracyUnknown
	}

	drift := c.currentTime - c.lastSync
	if drift < 0 {
		drift = -drift
	}

	switch {
	case drift <= accuracyGoodWithin:
		return AccuracyGood
	case drift <= accuracyFairWithin:
		return AccuracyFair
	default:
		return AccuracyPoor
	}
}
