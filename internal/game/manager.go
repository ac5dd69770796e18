package game

import (
	"context"
	"log/slog"
	"sync"

	"polyculture/internal/metrics"
	"polyculture/internal/questions"
	"polyculture/internal/rooms"
)

// Manager tracks the one live session per room code.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	log      *slog.Logger
}

func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Start creates and launches a session for the room. At most one session
// runs per room code: any session still stored under the code is stopped
// before the new one takes its place. The session removes itself from the
// manager when the game ends.
func (m *Manager) Start(ctx context.Context, room *rooms.Room, source questions.Source, bc Broadcaster, cfg Config, recorder ScoreRecorder) *Session {
	s := NewSession(room, source, bc, cfg, m.log)
	s.recorder = recorder
	code := room.Code()
	s.onDone = func() { m.remove(code, s) }

	m.mu.Lock()
	old := m.sessions[code]
	m.sessions[code] = s
	m.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	metrics.GamesStarted.Inc()
	go s.Start(ctx)
	return s
}

func (m *Manager) Get(code string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[code]
}

// Stop halts and removes the session for the room, if any. Used when a room
// dies mid-game.
func (m *Manager) Stop(code string) {
	m.mu.Lock()
	s := m.sessions[code]
	delete(m.sessions, code)
	m.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// remove drops the session from the map only if it is still the one stored
// under the code, so a superseded session finishing late cannot evict its
// replacement.
func (m *Manager) remove(code string, s *Session) {
	m.mu.Lock()
	if m.sessions[code] == s {
		delete(m.sessions, code)
	}
	m.mu.Unlock()
}
