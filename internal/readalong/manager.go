package readalong

import (
	"log/slog"
	"sync"
	"time"

	"github.com/writegeist/readalong-server/internal/errors"
	"github.com/writegeist/readalong-server/internal/id"
)

// Session is one open read-along view: a controller bound to a chapter and
// a recording.
type Session struct {
	ID         string
	ChapterID  string
	Controller *Controller
	CreatedAt  time.Time
}

// Manager tracks open read-along sessions keyed by session ID. Closing a
// session discards its in-flight debounce timers.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewManager creates an empty session manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// NewSessionID generates an identifier for a session about to be opened.
// Callers bind their outbound signal routing to the ID before the
// controller exists.
func NewSessionID() (string, error) {
	return id.Generate("ras")
}

// Open registers a controller as a new session and returns it.
func (m *Manager) Open(sessionID, chapterID string, ctrl *Controller) *Session {
	session := &Session{
		ID:         sessionID,
		ChapterID:  chapterID,
		Controller: ctrl,
		CreatedAt:  time.Now(),
	}

	m.mu.Lock()
	m.sessions[sessionID] = session
	m.mu.Unlock()

	m.logger.Debug("read-along session opened", "session_id", sessionID, "chapter_id", chapterID)
	return session
}

// Get returns the session with the given ID.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.NotFoundf("read-along session %s not found", sessionID)
	}
	return session, nil
}

// Close removes a session and cancels its pending timers.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return errors.NotFoundf("read-along session %s not found", sessionID)
	}

	session.Controller.Close()
	m.logger.Debug("read-along session closed", "session_id", sessionID)
	return nil
}

// CloseAll tears down every open session. Called on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Controller.Close()
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
