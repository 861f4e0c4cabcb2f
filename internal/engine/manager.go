package engine

import (
	"sync"
	"time"
)

// UserHandle is the serialization point for one user. All state
// mutations for a user happen while its handle is held, so two
// concurrent submissions for the same user apply one after the other.
type UserHandle struct {
	UserID string
	mu     sync.Mutex

	// guarded by the manager's lock, not the handle's
	refs     int
	lastUsed time.Time
}

// Manager tracks the resident per-user handles. Handles are created
// on first use, bounded by maxHandles, and evicted after sitting idle
// for the configured TTL. Eviction never drops a handle with an
// acquisition in flight.
type Manager struct {
	handles    map[string]*UserHandle // key: user_id
	mu         sync.Mutex
	maxHandles int
}

// NewManager creates a new handle manager
func NewManager(maxHandles int) *Manager {
	return &Manager{
		handles:    make(map[string]*UserHandle),
		maxHandles: maxHandles,
	}
}

// Acquire returns the user's handle with its lock held. The caller
// must Release it. Creating a handle beyond the bound fails with
// ErrMaxHandlesReached.
func (m *Manager) Acquire(userID string) (*UserHandle, error) {
	m.mu.Lock()
	h, exists := m.handles[userID]
	if !exists {
		if len(m.handles) >= m.maxHandles {
			m.mu.Unlock()
			return nil, ErrMaxHandlesReached
		}
		h = &UserHandle{UserID: userID, lastUsed: time.Now()}
		m.handles[userID] = h
	}
	h.refs++
	m.mu.Unlock()

	// Lock outside the map lock so one slow user cannot stall others
	h.mu.Lock()
	return h, nil
}

// Release unlocks the handle and marks it recently used
func (m *Manager) Release(h *UserHandle) {
	h.mu.Unlock()

	m.mu.Lock()
	h.refs--
	h.lastUsed = time.Now()
	m.mu.Unlock()
}

// EvictIdle removes handles that have no acquisition in flight and
// have not been used within the timeout. Returns the evicted user ids.
func (m *Manager) EvictIdle(timeout time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var evicted []string

	for userID, h := range m.handles {
		if h.refs == 0 && now.Sub(h.lastUsed) > timeout {
			delete(m.handles, userID)
			evicted = append(evicted, userID)
		}
	}

	return evicted
}

// Count returns the number of resident handles
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Stats returns statistics about the handle manager
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	inFlight := 0
	for _, h := range m.handles {
		if h.refs > 0 {
			inFlight++
		}
	}

	return ManagerStats{
		ResidentHandles: len(m.handles),
		InFlight:        inFlight,
		MaxHandles:      m.maxHandles,
	}
}

// ManagerStats contains statistics about the handle manager
type ManagerStats struct {
	ResidentHandles int
	InFlight        int
	MaxHandles      int
}

var ErrMaxHandlesReached = &EngineError{"maximum active users reached"}

// EngineError represents an engine capacity error
type EngineError struct {
	msg string
}

func (e *EngineError) Error() string {
	return e.msg
}
