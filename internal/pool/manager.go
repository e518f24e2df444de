// Package pool provides the per-session connection pool manager: one
// pooled *sql.DB per session_id, a validity probe on first use, and a
// first-writer-wins publication when two callers race to initialize the
// same session's pool. Unlike a generic cross-session pool cache, the
// invariant here is per-session exclusive ownership: no pool outlives its
// session, and no session ever has two pools.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config holds connection pool configuration options.
type Config struct {
	// MaxIdleConns is the maximum number of idle connections retained
	// (sql.DB.SetMaxIdleConns); no minimum number of idle connections is
	// kept open.
	MaxIdleConns int `json:"max_idle_conns"`

	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int `json:"max_open_conns"`

	// ConnMaxLifetime is the maximum amount of time a connection may be
	// reused. Zero means unlimited; the session's own max_lifetime already
	// bounds how long any connection under it can matter.
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// ConnMaxIdleTime is the maximum amount of time a connection may sit idle.
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`

	// ValidateTimeout bounds the initial ping used to validate a freshly
	// opened pool before it is published.
	ValidateTimeout time.Duration `json:"validate_timeout"`
}

// DefaultConfig returns the standard per-session pool limits: max 5 open
// connections, at most 1 idle connection retained, a 60s idle timeout, and a 5s
// validity probe on initialization.
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:    1,
		MaxOpenConns:    5,
		ConnMaxIdleTime: 60 * time.Second,
		ValidateTimeout: 5 * time.Second,
	}
}

// poolEntry holds a database connection pool and its metadata.
type poolEntry struct {
	db        *sql.DB
	driver    string
	createdAt time.Time
}

// Manager manages one connection pool per session_id. GetConnection is the
// only way a pool is created; racing initializers on the same session_id
// are collapsed with golang.org/x/sync/singleflight, so only one Open ever
// runs for a given session_id and there is never a second pool to close.
type Manager struct {
	mu     sync.RWMutex
	pools  map[string]*poolEntry // keyed by session_id
	config Config
	opener DBOpener
	group  singleflight.Group
}

// DBOpener is an interface for opening database connections.
// This allows for mocking in tests.
type DBOpener interface {
	Open(driver, connStr string) (*sql.DB, error)
}

// defaultDBOpener uses sql.Open to open database connections.
type defaultDBOpener struct{}

func (d *defaultDBOpener) Open(driver, connStr string) (*sql.DB, error) {
	return sql.Open(driver, connStr)
}

// NewManager creates a new connection pool manager with the given configuration.
func NewManager(config Config) *Manager {
	return &Manager{
		pools:  make(map[string]*poolEntry),
		config: config,
		opener: &defaultDBOpener{},
	}
}

// NewManagerWithOpener creates a new connection pool manager with a custom DB opener.
// This is primarily useful for testing.
func NewManagerWithOpener(config Config, opener DBOpener) *Manager {
	return &Manager{
		pools:  make(map[string]*poolEntry),
		config: config,
		opener: opener,
	}
}

// GetConnection returns the pooled *sql.DB for sessionID, creating and
// validating it on first use. The returned *sql.DB is owned by the
// Manager; callers must not close it directly, use CloseConnection.
func (m *Manager) GetConnection(ctx context.Context, sessionID, driverName, connStr string) (*sql.DB, error) {
	if entry, ok := m.lookup(sessionID); ok {
		if err := entry.db.PingContext(ctx); err == nil {
			return entry.db, nil
		}
		// Dead connection: fall through and let singleflight rebuild it.
	}

	v, err, _ := m.group.Do(sessionID, func() (interface{}, error) {
		if entry, ok := m.lookup(sessionID); ok {
			if err := entry.db.PingContext(ctx); err == nil {
				return entry.db, nil
			}
			m.mu.Lock()
			entry.db.Close()
			delete(m.pools, sessionID)
			m.mu.Unlock()
		}

		db, err := m.opener.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxIdleConns(m.config.MaxIdleConns)
		db.SetMaxOpenConns(m.config.MaxOpenConns)
		db.SetConnMaxLifetime(m.config.ConnMaxLifetime)
		db.SetConnMaxIdleTime(m.config.ConnMaxIdleTime)

		validateCtx := ctx
		if m.config.ValidateTimeout > 0 {
			var cancel context.CancelFunc
			validateCtx, cancel = context.WithTimeout(ctx, m.config.ValidateTimeout)
			defer cancel()
		}
		if err := db.PingContext(validateCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to validate pool for session %s: %w", sessionID, err)
		}

		m.mu.Lock()
		m.pools[sessionID] = &poolEntry{db: db, driver: driverName, createdAt: time.Now()}
		m.mu.Unlock()
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func (m *Manager) lookup(sessionID string) (*poolEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.pools[sessionID]
	return entry, ok
}

// Lookup returns the already-initialized pool for sessionID without
// creating one, used by callers (the sampler scheduler) that must never
// trigger pool initialization themselves.
func (m *Manager) Lookup(sessionID string) (*sql.DB, bool) {
	entry, ok := m.lookup(sessionID)
	if !ok {
		return nil, false
	}
	return entry.db, true
}

// Close closes every pool managed by this manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for sessionID, entry := range m.pools {
		if err := entry.db.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close pool %s: %w", sessionID, err)
		}
		delete(m.pools, sessionID)
	}
	return lastErr
}

// CloseConnection closes and forgets the pool for sessionID, if any.
// Callers must stop that session's samplers before calling this; the
// method does not enforce that ordering itself, it only owns the pool's
// lifecycle.
func (m *Manager) CloseConnection(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.pools[sessionID]; ok {
		err := entry.db.Close()
		delete(m.pools, sessionID)
		return err
	}
	return nil
}

// PoolStats contains statistics about a connection pool.
type PoolStats struct {
	Driver    string      `json:"driver"`
	CreatedAt time.Time   `json:"created_at"`
	Stats     sql.DBStats `json:"stats"`
}

// Stats returns statistics about all managed connection pools, keyed by
// session_id.
func (m *Manager) Stats() map[string]PoolStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]PoolStats)
	for sessionID, entry := range m.pools {
		stats[sessionID] = PoolStats{
			Driver:    entry.driver,
			CreatedAt: entry.createdAt,
			Stats:     entry.db.Stats(),
		}
	}
	return stats
}

// PoolCount returns the number of active pools.
func (m *Manager) PoolCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pools)
}

// HasPool returns true if a pool exists for sessionID.
func (m *Manager) HasPool(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pools[sessionID]
	return ok
}
