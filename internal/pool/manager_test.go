package pool

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb" // Register DuckDB driver for tests
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxIdleConns != 1 {
		t.Errorf("MaxIdleConns = %d, want 1", cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns != 5 {
		t.Errorf("MaxOpenConns = %d, want 5", cfg.MaxOpenConns)
	}
	if cfg.ConnMaxIdleTime != 60*time.Second {
		t.Errorf("ConnMaxIdleTime = %v, want 60s", cfg.ConnMaxIdleTime)
	}
	if cfg.ValidateTimeout != 5*time.Second {
		t.Errorf("ValidateTimeout = %v, want 5s", cfg.ValidateTimeout)
	}
}

func TestNewManager(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)

	if m == nil {
		t.Fatal("NewManager returned nil")
	}
	if m.pools == nil {
		t.Error("pools map is nil")
	}
	if m.PoolCount() != 0 {
		t.Errorf("PoolCount() = %d, want 0", m.PoolCount())
	}
}

func TestGetConnection_KeyedBySessionID(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()

	db1, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:")
	if err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}
	if db1 == nil {
		t.Fatal("GetConnection returned nil db")
	}
	if m.PoolCount() != 1 {
		t.Errorf("PoolCount() = %d, want 1", m.PoolCount())
	}

	// Second call for the same session_id returns the same pool, even
	// though duckdb's in-memory DSN is shared across sessions here.
	db2, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:")
	if err != nil {
		t.Fatalf("Second GetConnection failed: %v", err)
	}
	if db1 != db2 {
		t.Error("expected same db instance for the same session_id")
	}
	if m.PoolCount() != 1 {
		t.Errorf("PoolCount() after second call = %d, want 1", m.PoolCount())
	}
}

func TestGetConnection_DifferentSessionsGetDifferentPools(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()
	tmpDir := t.TempDir()

	db1, err := m.GetConnection(ctx, "sess-a", "duckdb", tmpDir+"/a.duckdb")
	if err != nil {
		t.Fatalf("first GetConnection failed: %v", err)
	}
	db2, err := m.GetConnection(ctx, "sess-b", "duckdb", tmpDir+"/b.duckdb")
	if err != nil {
		t.Fatalf("second GetConnection failed: %v", err)
	}

	if db1 == db2 {
		t.Error("different session ids should never share a pool")
	}
	if m.PoolCount() != 2 {
		t.Errorf("PoolCount() = %d, want 2", m.PoolCount())
	}
}

func TestGetConnection_ConcurrentSameSessionFirstWriterWins(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()
	const goroutines = 10

	var wg sync.WaitGroup
	dbs := make([]*sql.DB, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			db, err := m.GetConnection(ctx, "sess-race", "duckdb", ":memory:")
			dbs[idx] = db
			errs[idx] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d failed: %v", i, err)
		}
	}

	first := dbs[0]
	for i, db := range dbs[1:] {
		if db != first {
			t.Errorf("goroutine %d got a different db instance than the first writer", i+1)
		}
	}

	if m.PoolCount() != 1 {
		t.Errorf("PoolCount() = %d, want 1 (no loser pool should ever be created)", m.PoolCount())
	}
}

func TestClose(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)

	ctx := context.Background()
	tmpDir := t.TempDir()

	if _, err := m.GetConnection(ctx, "sess-1", "duckdb", tmpDir+"/close_test1.duckdb"); err != nil {
		t.Fatalf("GetConnection 1 failed: %v", err)
	}
	if _, err := m.GetConnection(ctx, "sess-2", "duckdb", tmpDir+"/close_test2.duckdb"); err != nil {
		t.Fatalf("GetConnection 2 failed: %v", err)
	}

	if m.PoolCount() != 2 {
		t.Errorf("PoolCount() before close = %d, want 2", m.PoolCount())
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if m.PoolCount() != 0 {
		t.Errorf("PoolCount() after close = %d, want 0", m.PoolCount())
	}
}

func TestCloseConnection(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()
	tmpDir := t.TempDir()

	if _, err := m.GetConnection(ctx, "sess-1", "duckdb", tmpDir+"/close_conn_test1.duckdb"); err != nil {
		t.Fatalf("GetConnection 1 failed: %v", err)
	}
	if _, err := m.GetConnection(ctx, "sess-2", "duckdb", tmpDir+"/close_conn_test2.duckdb"); err != nil {
		t.Fatalf("GetConnection 2 failed: %v", err)
	}

	if m.PoolCount() != 2 {
		t.Errorf("PoolCount() = %d, want 2", m.PoolCount())
	}

	if err := m.CloseConnection("sess-1"); err != nil {
		t.Errorf("CloseConnection failed: %v", err)
	}
	if m.PoolCount() != 1 {
		t.Errorf("PoolCount() after CloseConnection = %d, want 1", m.PoolCount())
	}
	if !m.HasPool("sess-2") {
		t.Error("expected pool for sess-2 to still exist")
	}
}

func TestCloseConnection_NonExistent(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	if err := m.CloseConnection("nonexistent"); err != nil {
		t.Errorf("CloseConnection for non-existent session should not error: %v", err)
	}
}

func TestHasPool(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()

	if m.HasPool("sess-1") {
		t.Error("HasPool should return false before creating pool")
	}

	if _, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:"); err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}

	if !m.HasPool("sess-1") {
		t.Error("HasPool should return true after creating pool")
	}
	if m.HasPool("sess-other") {
		t.Error("HasPool should return false for an unrelated session id")
	}
}

func TestStats(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()

	if _, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:"); err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}

	stats := m.Stats()
	if len(stats) != 1 {
		t.Errorf("Stats() returned %d entries, want 1", len(stats))
	}
	for _, poolStats := range stats {
		if poolStats.Driver != "duckdb" {
			t.Errorf("Driver = %q, want 'duckdb'", poolStats.Driver)
		}
		if poolStats.CreatedAt.IsZero() {
			t.Error("CreatedAt should not be zero")
		}
	}
}

// mockDBOpener implements DBOpener for testing error handling
type mockDBOpener struct {
	openFunc func(driver, connStr string) (*sql.DB, error)
	calls    int32
}

func (m *mockDBOpener) Open(driver, connStr string) (*sql.DB, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.openFunc != nil {
		return m.openFunc(driver, connStr)
	}
	return sql.Open(driver, connStr)
}

func TestGetConnection_OpenError(t *testing.T) {
	cfg := DefaultConfig()
	opener := &mockDBOpener{
		openFunc: func(driver, connStr string) (*sql.DB, error) {
			return nil, errors.New("mock open error")
		},
	}
	m := NewManagerWithOpener(cfg, opener)
	defer m.Close()

	ctx := context.Background()

	_, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:")
	if err == nil {
		t.Error("expected error from GetConnection")
	}
	if m.PoolCount() != 0 {
		t.Errorf("PoolCount() = %d, want 0 after failed open", m.PoolCount())
	}
}

func TestGetConnection_ValidateTimeoutExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ValidateTimeout = time.Nanosecond
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()
	_, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:")
	if err == nil {
		t.Error("expected validation to fail within a nanosecond timeout")
	}
	if m.PoolCount() != 0 {
		t.Errorf("PoolCount() = %d, want 0 after failed validation", m.PoolCount())
	}
}

func TestGetConnection_ContextCanceled(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:")
	if err == nil {
		t.Error("expected error with canceled context")
	}
}

func TestPoolConfigApplied(t *testing.T) {
	cfg := Config{
		MaxIdleConns:    3,
		MaxOpenConns:    7,
		ConnMaxLifetime: 2 * time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
	}
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()

	db, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:")
	if err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}

	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Errorf("MaxOpenConnections = %d, want 7", stats.MaxOpenConnections)
	}
}

func TestGetConnection_DeadPoolIsRecreated(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg)
	defer m.Close()

	ctx := context.Background()
	db, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:")
	if err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}
	db.Close() // simulate the underlying pool dying without going through CloseConnection

	db2, err := m.GetConnection(ctx, "sess-1", "duckdb", ":memory:")
	if err != nil {
		t.Fatalf("GetConnection after dead pool failed: %v", err)
	}
	if db2 == db {
		t.Error("expected a fresh pool after the old one died")
	}
	if m.PoolCount() != 1 {
		t.Errorf("PoolCount() = %d, want 1", m.PoolCount())
	}
}
