// Package session implements session creation, liveness, and the
// idle/lifetime expiration sweep. It knows nothing about connection pools
// or samplers; expiring a session here never closes its pool by itself.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// IdleTimeout and MaxLifetime bound session liveness: a session is live
// iff last_accessed_at+IdleTimeout > now AND expires_at > now.
const (
	IdleTimeout = 30 * time.Minute
	MaxLifetime = 24 * time.Hour
)

// SweepInterval is how often the expiration sweep runs.
const SweepInterval = 5 * time.Minute

// Options carries the per-session connection preferences supplied at
// connect time.
type Options struct {
	ReadOnly            bool
	UseMCP              bool
	ConnectionTimeoutMs int
}

// Session is one connected client's state, independent of whether a pool
// has been initialized for it yet.
type Session struct {
	ID             string
	DSN            string
	DBType         string
	Options        Options
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
}

// IsLive reports whether s is still usable at instant now.
func (s *Session) IsLive(now time.Time) bool {
	return s.LastAccessedAt.Add(IdleTimeout).After(now) && s.ExpiresAt.After(now)
}

// Manager owns the live session table. All mutation goes through it;
// Session values returned by Get/Create are owned by the caller after
// return but must not be mutated directly - use Touch to refresh
// last_accessed_at.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create generates a random session_id, stores a new Session, and returns
// it. No connection pool is created here - that happens lazily on first
// use.
func (m *Manager) Create(dsn, dbType string, opts Options) *Session {
	now := m.now()
	s := &Session{
		ID:             uuid.NewString(),
		DSN:            dsn,
		DBType:         dbType,
		Options:        opts,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(MaxLifetime),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session for id if it exists and is still live, touching
// its last_accessed_at. ok is false for an unknown or expired id.
func (m *Manager) Get(id string) (s *Session, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found, exists := m.sessions[id]
	if !exists {
		return nil, false
	}
	now := m.now()
	if !found.IsLive(now) {
		return nil, false
	}
	found.LastAccessedAt = now
	return found, true
}

// Peek returns the session for id without touching last_accessed_at or
// checking liveness, used by components (the sampler scheduler) that need
// to read session metadata without resetting its idle clock.
func (m *Manager) Peek(id string) (s *Session, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found, exists := m.sessions[id]
	return found, exists
}

// Remove deletes the session from the registry, used by explicit
// disconnect. It does not touch any connection pool.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Sweep removes every session whose idle or lifetime boundary has passed,
// returning their ids so the caller (which owns the pool/sampler
// lifecycle) can decide what, if anything, to do about their pools.
// Expiration here never closes a pool by itself.
func (m *Manager) Sweep() []string {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for id, s := range m.sessions {
		if !s.IsLive(now) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	return expired
}

// Count returns the number of live-or-not sessions currently tracked
// (Sweep has not yet necessarily run to clear expired ones).
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
