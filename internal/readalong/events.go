package readalong

// Event is an inbound message from the host environment: playback time
// ticks, user clicks, and mode toggles. The controller consumes events
// strictly in arrival order through HandleEvent.
type Event interface {
	isEvent()
}

// TimeUpdate carries the playback transport's current time in seconds.
// Monotonic while playing; may jump on user seeks.
type TimeUpdate struct {
	Time float64
}

// ChunkClick is a user click on the chunk at Index. While calibrating it
// records a calibration point at the current playback time; while idle it
// requests a seek to the chunk's start.
type ChunkClick struct {
	Index int
}

// EnterCalibration switches the controller into calibration mode.
type EnterCalibration struct{}

// ExitCalibration returns the controller to idle mode.
type ExitCalibration struct{}

// Undo restores the point collection to its state before the most recent
// mutation. Valid in either mode.
type Undo struct{}

// Clear discards all calibration points and the persisted record. Valid in
// either mode; forces the controller back to idle.
type Clear struct{}

// SetAutoScroll toggles the follow-along auto-scroll behavior.
type SetAutoScroll struct {
	Enabled bool
}

func (TimeUpdate) isEvent()       {}
func (ChunkClick) isEvent()       {}
func (EnterCalibration) isEvent() {}
func (ExitCalibration) isEvent()  {}
func (Undo) isEvent()             {}
func (Clear) isEvent()            {}
func (SetAutoScroll) isEvent()    {}
