package readalong

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writegeist/readalong-server/internal/align"
	"github.com/writegeist/readalong-server/internal/domain"
)

// fakeStore records calibration persistence calls in memory.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*domain.CalibrationRecord
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*domain.CalibrationRecord)}
}

func (f *fakeStore) LoadCalibration(key string) *domain.CalibrationRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[key]
}

func (f *fakeStore) SaveCalibration(key string, rec *domain.CalibrationRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[key] = rec
	f.saves++
}

func (f *fakeStore) ClearCalibration(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, key)
}

// sink collects outbound callback signals.
type sink struct {
	mu      sync.Mutex
	seeks   []float64
	scrolls []int
	active  []int
}

func (s *sink) callbacks() Callbacks {
	return Callbacks{
		Seek: func(t float64) {
			s.mu.Lock()
			s.seeks = append(s.seeks, t)
			s.mu.Unlock()
		},
		ScrollTo: func(i int) {
			s.mu.Lock()
			s.scrolls = append(s.scrolls, i)
			s.mu.Unlock()
		},
		ActiveChunk: func(i int) {
			s.mu.Lock()
			s.active = append(s.active, i)
			s.mu.Unlock()
		},
	}
}

func (s *sink) scrollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scrolls)
}

func testChunks() []align.TextChunk {
	// Five chunks, 2s each, back to back.
	out := make([]align.TextChunk, 5)
	for i := range out {
		out[i] = align.TextChunk{
			Text:      "chunk",
			StartTime: float64(i) * 2,
			EndTime:   float64(i)*2 + 2,
			Index:     i,
		}
	}
	return out
}

func newTestController(t *testing.T, store CalibrationStore, s *sink) *Controller {
	t.Helper()
	if store == nil {
		store = newFakeStore()
	}
	var cb Callbacks
	if s != nil {
		cb = s.callbacks()
	}
	c := NewController(testChunks(), "calibration_test_10", store, cb, nil, WithScrollDelay(10*time.Millisecond))
	t.Cleanup(c.Close)
	return c
}

func TestController_InitialState(t *testing.T) {
	c := newTestController(t, nil, nil)
	state := c.State()

	assert.Equal(t, ModeIdle, state.Mode)
	assert.True(t, state.AutoScroll)
	assert.Equal(t, -1, state.ActiveIndex)
	assert.Equal(t, AccuracyUnknown, state.Accuracy)
	assert.False(t, state.CanUndo)
	assert.Len(t, state.Chunks, 5)
	assert.Empty(t, state.Points)
}

func TestController_LoadsSavedCalibration(t *testing.T) {
	store := newFakeStore()
	store.records["calibration_test_10"] = domain.NewCalibrationRecord([]align.CalibrationPoint{
		{TextIndex: 1, AudioTime: 3},
		{TextIndex: 4, AudioTime: 12},
	}, 12)

	c := newTestController(t, store, nil)
	state := c.State()

	require.Len(t, state.Points, 2)
	// Timings already reflect the stored points.
	assert.InDelta(t, 3.0, state.Chunks[1].StartTime, 1e-9)
	assert.InDelta(t, 12.0, state.Chunks[4].StartTime, 1e-9)
}

func TestController_DropsOutOfRangeSavedPoints(t *testing.T) {
	store := newFakeStore()
	store.records["calibration_test_10"] = domain.NewCalibrationRecord([]align.CalibrationPoint{
		{TextIndex: 2, AudioTime: 5},
		{TextIndex: 99, AudioTime: 50},
	}, 50)

	c := newTestController(t, store, nil)

	require.Len(t, c.State().Points, 1)
	assert.Equal(t, 2, c.State().Points[0].TextIndex)
}

func TestController_TimeUpdateTracksActiveChunk(t *testing.T) {
	s := &sink{}
	c := newTestController(t, nil, s)

	c.HandleEvent(TimeUpdate{Time: 5.0})
	assert.Equal(t, 2, c.State().ActiveIndex)

	// Time outside every chunk clears the highlight.
	c.HandleEvent(TimeUpdate{Time: 50})
	assert.Equal(t, -1, c.State().ActiveIndex)

	s.mu.Lock()
	assert.Equal(t, []int{2, -1}, s.active)
	s.mu.Unlock()
}

func TestController_NoSignalWithoutTransition(t *testing.T) {
	s := &sink{}
	c := newTestController(t, nil, s)

	c.HandleEvent(TimeUpdate{Time: 4.1})
	c.HandleEvent(TimeUpdate{Time: 4.5})
	c.HandleEvent(TimeUpdate{Time: 5.9})

	s.mu.Lock()
	assert.Equal(t, []int{2}, s.active)
	s.mu.Unlock()
}

func TestController_ScrollDebounce(t *testing.T) {
	s := &sink{}
	c := newTestController(t, nil, s)

	// Rapid transitions within the debounce window collapse to one scroll.
	c.HandleEvent(TimeUpdate{Time: 1})
	c.HandleEvent(TimeUpdate{Time: 3})
	c.HandleEvent(TimeUpdate{Time: 5})

	assert.Eventually(t, func() bool {
		return s.scrollCount() == 1
	}, time.Second, 5*time.Millisecond)

	s.mu.Lock()
	assert.Equal(t, []int{2}, s.scrolls)
	s.mu.Unlock()
}

func TestController_AutoScrollOffSuppressesScroll(t *testing.T) {
	s := &sink{}
	c := newTestController(t, nil, s)

	c.HandleEvent(SetAutoScroll{Enabled: false})
	c.HandleEvent(TimeUpdate{Time: 1})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, s.scrollCount())
}

func TestController_IdleClickSeeks(t *testing.T) {
	s := &sink{}
	c := newTestController(t, nil, s)

	c.HandleEvent(ChunkClick{Index: 3})

	s.mu.Lock()
	assert.Equal(t, []float64{6.0}, s.seeks)
	s.mu.Unlock()
	assert.Empty(t, c.State().Points)
}

func TestController_ClickOutOfRangeIgnored(t *testing.T) {
	s := &sink{}
	c := newTestController(t, nil, s)

	c.HandleEvent(ChunkClick{Index: -1})
	c.HandleEvent(ChunkClick{Index: 5})

	s.mu.Lock()
	assert.Empty(t, s.seeks)
	s.mu.Unlock()
}

func TestController_CalibrationClickRecordsPoint(t *testing.T) {
	store := newFakeStore()
	c := newTestController(t, store, nil)

	c.HandleEvent(TimeUpdate{Time: 7.5})
	c.HandleEvent(EnterCalibration{})
	c.HandleEvent(ChunkClick{Index: 2})

	state := c.State()
	require.Len(t, state.Points, 1)
	assert.Equal(t, 2, state.Points[0].TextIndex)
	assert.InDelta(t, 7.5, state.Points[0].AudioTime, 1e-9)
	assert.InDelta(t, 7.5, state.LastSync, 1e-9)
	assert.True(t, state.CanUndo)

	// Every point mutation is persisted immediately.
	saved := store.LoadCalibration("calibration_test_10")
	require.NotNil(t, saved)
	assert.Len(t, saved.Points, 1)
}

func TestController_RecalibratingSameChunkReplaces(t *testing.T) {
	c := newTestController(t, nil, nil)

	c.HandleEvent(EnterCalibration{})
	c.HandleEvent(TimeUpdate{Time: 4})
	c.HandleEvent(ChunkClick{Index: 2})
	c.HandleEvent(TimeUpdate{Time: 6})
	c.HandleEvent(ChunkClick{Index: 2})

	state := c.State()
	require.Len(t, state.Points, 1)
	assert.InDelta(t, 6.0, state.Points[0].AudioTime, 1e-9)
}

func TestController_UndoRestoresPreviousPoints(t *testing.T) {
	c := newTestController(t, nil, nil)

	c.HandleEvent(EnterCalibration{})
	c.HandleEvent(TimeUpdate{Time: 3})
	c.HandleEvent(ChunkClick{Index: 1})
	c.HandleEvent(TimeUpdate{Time: 9})
	c.HandleEvent(ChunkClick{Index: 4})
	require.Len(t, c.State().Points, 2)

	c.HandleEvent(Undo{})
	state := c.State()
	require.Len(t, state.Points, 1)
	assert.Equal(t, 1, state.Points[0].TextIndex)

	c.HandleEvent(Undo{})
	assert.Empty(t, c.State().Points)
	assert.False(t, c.State().CanUndo)

	// Undo with no history is a no-op.
	c.HandleEvent(Undo{})
	assert.Empty(t, c.State().Points)
}

func TestController_EnterCalibrationResetsHistoryAndAutoScroll(t *testing.T) {
	c := newTestController(t, nil, nil)

	c.HandleEvent(EnterCalibration{})
	state := c.State()
	assert.Equal(t, ModeCalibrating, state.Mode)
	assert.False(t, state.AutoScroll)
	assert.False(t, state.CanUndo)

	// Re-entering while calibrating changes nothing.
	c.HandleEvent(EnterCalibration{})
	assert.Equal(t, ModeCalibrating, c.State().Mode)
}

func TestController_ExitCalibrationRestoresAutoScroll(t *testing.T) {
	c := newTestController(t, nil, nil)

	c.HandleEvent(EnterCalibration{})
	c.HandleEvent(ExitCalibration{})

	state := c.State()
	assert.Equal(t, ModeIdle, state.Mode)
	assert.True(t, state.AutoScroll)
}

func TestController_AutoScrollToggleDuringCalibrationDeferred(t *testing.T) {
	c := newTestController(t, nil, nil)

	c.HandleEvent(SetAutoScroll{Enabled: false})
	c.HandleEvent(EnterCalibration{})
	c.HandleEvent(SetAutoScroll{Enabled: true})

	// Still off while calibrating.
	assert.False(t, c.State().AutoScroll)

	c.HandleEvent(ExitCalibration{})
	assert.True(t, c.State().AutoScroll)
}

func TestController_ClearDiscardsEverything(t *testing.T) {
	store := newFakeStore()
	c := newTestController(t, store, nil)

	c.HandleEvent(EnterCalibration{})
	c.HandleEvent(TimeUpdate{Time: 3})
	c.HandleEvent(ChunkClick{Index: 1})
	c.HandleEvent(TimeUpdate{Time: 9})
	c.HandleEvent(ChunkClick{Index: 4})

	c.HandleEvent(Clear{})

	state := c.State()
	assert.Empty(t, state.Points)
	assert.Equal(t, ModeIdle, state.Mode)
	assert.True(t, state.AutoScroll)
	assert.Nil(t, store.LoadCalibration("calibration_test_10"))

	// The base timeline is back.
	assert.InDelta(t, 2.0, state.Chunks[1].StartTime, 1e-9)

	// Clear itself is undoable.
	c.HandleEvent(Undo{})
	assert.Len(t, c.State().Points, 2)
}

func TestController_CorrectionAppliedAfterTwoPoints(t *testing.T) {
	c := newTestController(t, nil, nil)

	c.HandleEvent(EnterCalibration{})
	c.HandleEvent(TimeUpdate{Time: 3})
	c.HandleEvent(ChunkClick{Index: 1})

	// One point: base timeline unchanged.
	assert.InDelta(t, 2.0, c.State().Chunks[1].StartTime, 1e-9)

	c.HandleEvent(TimeUpdate{Time: 12})
	c.HandleEvent(ChunkClick{Index: 4})

	// Two points: estimated span 2..8 maps onto 3..12.
	state := c.State()
	assert.InDelta(t, 3.0, state.Chunks[1].StartTime, 1e-9)
	assert.InDelta(t, 12.0, state.Chunks[4].StartTime, 1e-9)
}

func TestController_Accuracy(t *testing.T) {
	c := newTestController(t, nil, nil)

	assert.Equal(t, AccuracyUnknown, c.Accuracy())

	c.HandleEvent(EnterCalibration{})
	c.HandleEvent(TimeUpdate{Time: 5})
	c.HandleEvent(ChunkClick{Index: 2})
	c.HandleEvent(ExitCalibration{})

	assert.Equal(t, AccuracyGood, c.Accuracy())

	c.HandleEvent(TimeUpdate{Time: 40})
	assert.Equal(t, AccuracyFair, c.Accuracy())

	c.HandleEvent(TimeUpdate{Time: 100})
	assert.Equal(t, AccuracyPoor, c.Accuracy())
}

func TestController_StateSnapshotsAreCopies(t *testing.T) {
	c := newTestController(t, nil, nil)

	state := c.State()
	state.Chunks[0].StartTime = 999

	assert.Equal(t, 0.0, c.State().Chunks[0].StartTime)
}
