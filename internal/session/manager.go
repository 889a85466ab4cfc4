package session

import (
	"sort"
	"sync"

	"github.com/goodtune/wordbuddy/internal/account"
	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/metrics"
	"github.com/goodtune/wordbuddy/internal/random"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager owns the open sessions. The gate, speech service and pools in its
// deps are shared by all of them.
type Manager struct {
	deps   Deps
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Events == nil {
		deps.Events = NopSink{}
	}
	if deps.Random == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		deps.Random = random.New(seed)
	}

	return &Manager{
		deps:     deps,
		logger:   deps.Logger.With().Str("component", "sessions").Logger(),
		sessions: make(map[string]*Session),
	}, nil
}

// Open creates a session in menu mode.
func (m *Manager) Open(premium bool) *Session {
	s := newSession(uuid.NewString(), account.NewStatic(premium), m.deps)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	metrics.OpenSessions.Inc()
	m.logger.Info().Str("session", s.id).Bool("premium", premium).Msg("Session opened")
	return s
}

// Get returns the open session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns the ids of open sessions in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes and forgets a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	metrics.OpenSessions.Dec()
	return nil
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.OpenSessions.Dec()
	}
	if len(sessions) > 0 {
		m.logger.Info().Int("count", len(sessions)).Msg("Closed all sessions")
	}
}
