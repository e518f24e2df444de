// Package sampler implements per-session periodic collector runs
// scheduled at a fixed rate onto a shared worker pool, with overlap
// skipping and auto-stop on failure.
package sampler

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mantis/gatewayd/internal/apperr"
	"github.com/mantis/gatewayd/internal/collector"
	"github.com/mantis/gatewayd/internal/executor"
	"github.com/mantis/gatewayd/internal/pool"
	"github.com/mantis/gatewayd/internal/session"
)

// DefaultWorkerPoolSize is the shared scheduler's worker count; all
// sampler ticks across all sessions run on these workers.
const DefaultWorkerPoolSize = 10

// SessionSource exposes the session metadata a tick needs (the read-only
// option) without touching the session's idle clock.
type SessionSource interface {
	Peek(id string) (*session.Session, bool)
}

// Manager owns the defaults table and the (session_id, sampler_id) ->
// Instance live map.
type Manager struct {
	mu        sync.RWMutex
	defaults  map[string]SamplerDefinition
	instances map[string]map[string]*Instance
	reasons   map[string]map[string]string

	runner   *collector.Runner
	pools    *pool.Manager
	sessions SessionSource
	log      *zap.Logger
	wp       *workerPool
}

// NewManager constructs a Manager with no defaults loaded yet; call
// LoadDefaults before accepting upserts. sessions may be nil, in which
// case every tick runs without read-only enforcement.
func NewManager(runner *collector.Runner, pools *pool.Manager, sessions SessionSource, log *zap.Logger) *Manager {
	return &Manager{
		defaults:  make(map[string]SamplerDefinition),
		instances: make(map[string]map[string]*Instance),
		reasons:   make(map[string]map[string]string),
		runner:    runner,
		pools:     pools,
		sessions:  sessions,
		log:       log,
		wp:        newWorkerPool(DefaultWorkerPoolSize),
	}
}

// LoadDefaults reads samplers/default.json into the manager's defaults
// table, replacing any previously loaded set.
func (m *Manager) LoadDefaults(path string) error {
	defs, err := loadDefaults(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.defaults = defs
	m.mu.Unlock()
	return nil
}

func (m *Manager) connFor(ctx context.Context, sessionID string) (executor.Conn, error) {
	db, ok := m.pools.Lookup(sessionID)
	if !ok {
		return executor.Conn{}, apperr.New(apperr.CodeConnectionFailure, "no pool initialized for session "+sessionID)
	}
	readOnly := false
	if m.sessions != nil {
		if sess, ok := m.sessions.Peek(sessionID); ok {
			readOnly = sess.Options.ReadOnly
		}
	}
	return executor.Conn{DB: db, ReadOnly: readOnly}, nil
}

// Upsert merges patch field-wise over the sampler's default definition and
// starts (or restarts) the instance when the resolved definition is
// enabled. A definition change never mutates a live instance: the old
// instance is stopped and replaced by a fresh one carrying the resolved
// definition. An unknown sampler_id with no matching default is
// InvalidArgument.
func (m *Manager) Upsert(sessionID, dbType, samplerID string, patch SamplerDefinition) (*Instance, error) {
	m.mu.Lock()
	def, ok := m.defaults[samplerID]
	if !ok {
		m.mu.Unlock()
		return nil, apperr.InvalidArgument("unknown sampler_id: %s", samplerID)
	}
	resolved := def.mergeOver(patch)

	sessionInstances, ok := m.instances[sessionID]
	if !ok {
		sessionInstances = make(map[string]*Instance)
		m.instances[sessionID] = sessionInstances
	}
	prev := sessionInstances[samplerID]
	inst := newInstance(sessionID, samplerID, dbType, resolved, m.runner, m.connFor, m.log, m.onInstanceAutoStop)
	sessionInstances[samplerID] = inst
	if reasons, ok := m.reasons[sessionID]; ok {
		delete(reasons, samplerID)
	}
	m.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	if resolved.isEnabled() {
		inst.Start(m.wp.submit)
	}
	return inst, nil
}

// Start is Upsert with an empty patch, i.e. "start with defaults".
func (m *Manager) Start(sessionID, dbType, samplerID string) (*Instance, error) {
	return m.Upsert(sessionID, dbType, samplerID, SamplerDefinition{})
}

// onInstanceAutoStop is the auto-stop listener: when a sampler
// self-stops, remove it from the live map and record its reason under
// (session_id, sampler_id) for later status queries. An instance that was
// already replaced by a newer Upsert is ignored so its late failure cannot
// evict or shadow its successor.
func (m *Manager) onInstanceAutoStop(inst *Instance, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionInstances, ok := m.instances[inst.sessionID]
	if !ok || sessionInstances[inst.samplerID] != inst {
		return
	}
	delete(sessionInstances, inst.samplerID)
	reasons, ok := m.reasons[inst.sessionID]
	if !ok {
		reasons = make(map[string]string)
		m.reasons[inst.sessionID] = reasons
	}
	reasons[inst.samplerID] = reason
}

// Stop manually stops a running sampler (no reason retained) and removes
// it from the session's live map, transitioning it to ABSENT.
func (m *Manager) Stop(sessionID, samplerID string) error {
	m.mu.Lock()
	sessionInstances, ok := m.instances[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	inst, ok := sessionInstances[samplerID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(sessionInstances, samplerID)
	if reasons, ok := m.reasons[sessionID]; ok {
		delete(reasons, samplerID)
	}
	m.mu.Unlock()

	inst.Stop()
	return nil
}

// StopAll stops every sampler running for sessionID concurrently via
// errgroup, used by the disconnect flow which must stop all of a
// session's samplers before its pool is closed.
func (m *Manager) StopAll(sessionID string) error {
	m.mu.Lock()
	sessionInstances, ok := m.instances[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	toStop := make([]*Instance, 0, len(sessionInstances))
	for id, inst := range sessionInstances {
		toStop = append(toStop, inst)
		delete(sessionInstances, id)
	}
	delete(m.instances, sessionID)
	delete(m.reasons, sessionID)
	m.mu.Unlock()

	var g errgroup.Group
	for _, inst := range toStop {
		inst := inst
		g.Go(func() error {
			inst.Stop()
			return nil
		})
	}
	return g.Wait()
}

// ListSamplerIDs returns the sampler ids currently live (any state) for a
// session.
func (m *Manager) ListSamplerIDs(sessionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessionInstances := m.instances[sessionID]
	ids := make([]string, 0, len(sessionInstances))
	for id := range sessionInstances {
		ids = append(ids, id)
	}
	return ids
}

// StatusResult is the read-only state of one (session_id, sampler_id).
type StatusResult struct {
	State  string
	Reason string
}

// Status returns ABSENT for a sampler with no instance and no retained
// reason, RUNNING/STOPPED_WITH_REASON otherwise.
func (m *Manager) Status(sessionID, samplerID string) StatusResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if inst, ok := m.instances[sessionID][samplerID]; ok {
		state, reason := inst.Status()
		return StatusResult{State: state.String(), Reason: reason}
	}
	if reason, ok := m.reasons[sessionID][samplerID]; ok {
		return StatusResult{State: StateStoppedWithReason.String(), Reason: reason}
	}
	return StatusResult{State: StateAbsent.String()}
}

// Snapshot returns the most recently collected result for a sampler still
// in the session's live map, nil if none has run. An auto-stopped sampler
// is removed from the live map, so its snapshot is no longer returned.
func (m *Manager) Snapshot(sessionID, samplerID string) interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[sessionID][samplerID]
	if !ok {
		return nil
	}
	return inst.Snapshot()
}

// Shutdown drains the shared scheduler worker pool. Callers should
// StopAll every session first.
func (m *Manager) Shutdown() {
	m.wp.shutdown()
}
