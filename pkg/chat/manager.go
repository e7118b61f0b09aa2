package chat

import (
	"sync"
	"time"
)

const defaultSessionTTL = 12 * time.Hour

// Manager tracks live sessions by id. Sessions idle past the TTL are
// dropped on the next sweep.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*managedSession
	ttl      time.Duration
}

type managedSession struct {
	session  *Session
	lastSeen time.Time
}

// NewManager returns a session manager with the default TTL.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*managedSession),
		ttl:      defaultSessionTTL,
	}
}

// GetOrCreate returns the session with the given id, creating a fresh one
// when the id is unknown or expired. The returned id is authoritative: it
// differs from the requested id when a new session was created.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.sweepLocked(now)

	if entry, ok := m.sessions[id]; ok {
		entry.lastSeen = now
		return entry.session
	}

	session := NewSession()
	m.sessions[session.ID()] = &managedSession{session: session, lastSeen: now}
	return session
}

// Get returns the session with the given id, nil when unknown.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil
	}
	entry.lastSeen = time.Now()
	return entry.session
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) sweepLocked(now time.Time) {
	for id, entry := range m.sessions {
		if now.Sub(entry.lastSeen) > m.ttl {
			delete(m.sessions, id)
		}
	}
}
