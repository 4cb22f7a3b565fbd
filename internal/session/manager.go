package session

import (
	"log/slog"
	"sync"
	"time"
)

// Manager tracks the live hubs of every visitor, keyed by user and tab.
type Manager struct {
	mu     sync.RWMutex
	active map[string]map[string]*Hub
	deps   Deps
}

// NewManager creates a manager whose hubs are built from deps.
func NewManager(deps Deps) *Manager {
	return &Manager{
		active: make(map[string]map[string]*Hub),
		deps:   deps.withDefaults(),
	}
}

// Now returns the time on the hubs' clock.
func (m *Manager) Now() time.Time {
	return m.deps.Clock.Now()
}

// Get returns the hub for a user and tab, or nil.
func (m *Manager) Get(userID, sessionID string) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// GetOrCreate returns the hub for a user and tab, starting one if needed.
// The returned hub has been touched.
func (m *Manager) GetOrCreate(userID, sessionID string) *Hub {
	if h := m.Get(userID, sessionID); h != nil {
		h.Touch()
		return h
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*Hub)
	}
	if h, exists := m.active[userID][sessionID]; exists {
		h.Touch()
		return h
	}
	h := NewHub(userID, sessionID, m.deps)
	m.active[userID][sessionID] = h
	slog.Info("Assistant session registered", "user_id", userID, "session_id", sessionID)
	return h
}

// Close stops and removes one tab's hub.
func (m *Manager) Close(userID, sessionID string) {
	m.mu.Lock()
	var h *Hub
	if sessions, ok := m.active[userID]; ok {
		h = sessions[sessionID]
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(m.active, userID)
		}
	}
	m.mu.Unlock()

	if h != nil {
		h.Close()
	}
}

// CloseUser stops every hub belonging to a user.
func (m *Manager) CloseUser(userID string) {
	m.mu.Lock()
	sessions := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	for _, h := range sessions {
		h.Close()
	}
}

// CloseIdle stops hubs that have not been touched within ttl and returns
// them, already closed.
func (m *Manager) CloseIdle(ttl time.Duration) []*Hub {
	cutoff := m.Now().Add(-ttl)

	m.mu.Lock()
	var idle []*Hub
	for userID, sessions := range m.active {
		for sid, h := range sessions {
			if h.LastActive().Before(cutoff) {
				idle = append(idle, h)
				delete(sessions, sid)
			}
		}
		if len(sessions) == 0 {
			delete(m.active, userID)
		}
	}
	m.mu.Unlock()

	for _, h := range idle {
		h.Close()
	}
	return idle
}

// CloseAll stops every hub. Use it on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	var all []*Hub
	for _, sessions := range m.active {
		for _, h := range sessions {
			all = append(all, h)
		}
	}
	m.active = make(map[string]map[string]*Hub)
	m.mu.Unlock()

	for _, h := range all {
		h.Close()
	}
}

// Count returns the number of live hubs.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}
