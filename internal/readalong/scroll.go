package readalong

import (
	"sync"
	"time"
)

// defaultScrollDelay debounces scroll signals against rapid active-chunk
// transitions.
const defaultScrollDelay = 50 * time.Millisecond

// scrollScheduler is a cancellable scheduled action: rapid Schedule calls
// collapse into one notification for the most recent index. Last write wins;
// nothing is queued.
type scrollScheduler struct {
	mu     sync.Mutex
	timer  *time.Timer
	delay  time.Duration
	notify func(index int)
}

func newScrollScheduler(delay time.Duration, notify func(int)) *scrollScheduler {
	if delay <= 0 {
		delay = defaultScrollDelay
	}
	return &scrollScheduler{delay: delay, notify: notify}
}

// Schedule arms the timer for index, replacing any pending notification.
func (s *scrollScheduler) Schedule(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.notify == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.notify(index)
	})
}

// Cancel discards any pending notification.
func (s *scrollScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
