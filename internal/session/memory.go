package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Get implements Store
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Expired(time.Now()) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	return copySession(s), nil
}

// Save implements Store
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = copySession(s)
	return nil
}

// Delete implements Store
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Ping implements Store
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// CountActive returns the number of unexpired sessions
func (m *MemoryStore) CountActive(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	n := 0
	for _, s := range m.sessions {
		if !s.Expired(now) {
			n++
		}
	}
	return n, nil
}

func copySession(s *Session) *Session {
	c := *s
	if s.User != nil {
		u := *s.User
		u.Perms = append([]string(nil), s.User.Perms...)
		c.User = &u
	}
	return &c
}
