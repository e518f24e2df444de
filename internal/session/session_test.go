package session

import (
	"testing"
	"time"
)

func newManagerAt(t0 time.Time) (*Manager, *time.Time) {
	cur := t0
	m := &Manager{sessions: make(map[string]*Session), now: func() time.Time { return cur }}
	return m, &cur
}

func TestCreate_AssignsIDAndTimestamps(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, _ := newManagerAt(t0)

	s := m.Create("dsn", "postgres", Options{})
	if s.ID == "" {
		t.Error("expected a non-empty session id")
	}
	if !s.CreatedAt.Equal(t0) || !s.LastAccessedAt.Equal(t0) {
		t.Error("timestamps should be set to creation time")
	}
	if !s.ExpiresAt.Equal(t0.Add(MaxLifetime)) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, t0.Add(MaxLifetime))
	}
}

func TestGet_TouchesLastAccessedAt(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, cur := newManagerAt(t0)
	s := m.Create("dsn", "postgres", Options{})

	*cur = t0.Add(5 * time.Minute)
	got, ok := m.Get(s.ID)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if !got.LastAccessedAt.Equal(*cur) {
		t.Errorf("LastAccessedAt = %v, want %v", got.LastAccessedAt, *cur)
	}
}

func TestGet_ExpiredByIdle(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, cur := newManagerAt(t0)
	s := m.Create("dsn", "postgres", Options{})

	*cur = t0.Add(IdleTimeout + time.Second)
	if _, ok := m.Get(s.ID); ok {
		t.Error("session should be expired by idle timeout")
	}
}

func TestGet_ExpiredByLifetime(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, cur := newManagerAt(t0)
	s := m.Create("dsn", "postgres", Options{})

	// Touch it just under the idle boundary repeatedly, but past lifetime.
	for *cur = t0; cur.Before(t0.Add(MaxLifetime)); *cur = cur.Add(IdleTimeout / 2) {
		if _, ok := m.Get(s.ID); !ok {
			t.Fatalf("session expired early at %v", *cur)
		}
	}
	*cur = t0.Add(MaxLifetime + time.Second)
	if _, ok := m.Get(s.ID); ok {
		t.Error("session should be expired by max lifetime even if recently touched")
	}
}

func TestGet_UnknownID(t *testing.T) {
	m, _ := newManagerAt(time.Now())
	if _, ok := m.Get("nonexistent"); ok {
		t.Error("unknown id should not be found")
	}
}

func TestRemove(t *testing.T) {
	m, _ := newManagerAt(time.Now())
	s := m.Create("dsn", "postgres", Options{})
	m.Remove(s.ID)
	if _, ok := m.Get(s.ID); ok {
		t.Error("session should be gone after Remove")
	}
}

func TestSweep_RemovesExpiredOnly(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, cur := newManagerAt(t0)
	stale := m.Create("dsn1", "postgres", Options{})
	*cur = t0.Add(IdleTimeout / 2)
	fresh := m.Create("dsn2", "postgres", Options{})

	*cur = t0.Add(IdleTimeout + time.Minute)
	expired := m.Sweep()

	if len(expired) != 1 || expired[0] != stale.ID {
		t.Errorf("Sweep() = %v, want [%s]", expired, stale.ID)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
	if _, ok := m.Peek(fresh.ID); !ok {
		t.Error("fresh session should survive the sweep")
	}
}

func TestPeek_DoesNotTouchLastAccessedAt(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, cur := newManagerAt(t0)
	s := m.Create("dsn", "postgres", Options{})

	*cur = t0.Add(10 * time.Minute)
	peeked, ok := m.Peek(s.ID)
	if !ok {
		t.Fatal("expected to find session")
	}
	if !peeked.LastAccessedAt.Equal(t0) {
		t.Error("Peek should not update LastAccessedAt")
	}
}
