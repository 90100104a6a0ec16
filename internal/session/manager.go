package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/observability"
)

const defaultIdleTTL = 30 * time.Minute

// Manager owns the live sessions of the process.
type Manager struct {
	deps   Deps
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager constructs a session manager. Sessions idle for longer than ttl are dropped.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		logger:   deps.Logger.With().Str("component", "session_manager").Logger(),
		now:      time.Now,
		sessions: make(map[string]*Controller),
	}
}

// SetClock replaces the time source used for idle expiry.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Create opens a new session in the NoRole state.
func (m *Manager) Create() *Controller {
	controller := NewController(uuid.NewString(), m.deps)
	controller.touch(m.now())

	m.mu.Lock()
	m.sessions[controller.ID()] = controller
	count := len(m.sessions)
	m.mu.Unlock()

	observability.ActiveSessions().Set(float64(count))
	return controller
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	controller, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := m.now()
	if controller.idleSince(now) > m.ttl {
		m.Remove(id)
		return nil, ErrSessionNotFound
	}
	controller.touch(now)
	return controller, nil
}

// Remove closes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	observability.ActiveSessions().Set(float64(count))
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for id, controller := range m.sessions {
		if controller.idleSince(now) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	observability.ActiveSessions().Set(float64(count))
	if removed > 0 {
		m.logger.Debug().Int("removed", removed).Int("active", count).Msg("expired sessions swept")
	}
	return removed
}

// Run sweeps expired sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
