package sampler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mantis/gatewayd/internal/apperr"
	"github.com/mantis/gatewayd/internal/collector"
	"github.com/mantis/gatewayd/internal/executor"
)

// State is a sampler instance's lifecycle position.
type State int

const (
	StateAbsent State = iota
	StateRunning
	StateStoppedWithReason
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStoppedWithReason:
		return "STOPPED_WITH_REASON"
	default:
		return "ABSENT"
	}
}

// connValidator resolves a session's pooled connection handle (carrying
// its read-only flag) for one tick. A tick budgets 2s for the validity
// probe.
type connValidator func(ctx context.Context, sessionID string) (executor.Conn, error)

// Instance is one (session_id, sampler_id) sampler: a ticking task plus
// its lifecycle state, retained stop reason, and latest result.
type Instance struct {
	sessionID  string
	samplerID  string
	dbType     string
	def        SamplerDefinition
	runner     *collector.Runner
	getConn    connValidator
	log        *zap.Logger
	onAutoStop func(inst *Instance, reason string)

	mu     sync.Mutex
	state  State
	reason string
	ticker *time.Ticker
	stopCh chan struct{}

	collecting   int32 // CAS guard implementing run_policy.on_overlap == "skip"
	active       sync.WaitGroup
	stoppedOnce  sync.Once
	latestResult interface{}
}

func newInstance(sessionID, samplerID, dbType string, def SamplerDefinition, runner *collector.Runner, getConn connValidator, log *zap.Logger, onAutoStop func(inst *Instance, reason string)) *Instance {
	return &Instance{
		sessionID:  sessionID,
		samplerID:  samplerID,
		dbType:     dbType,
		def:        def,
		runner:     runner,
		getConn:    getConn,
		log:        log,
		onAutoStop: onAutoStop,
		state:      StateAbsent,
	}
}

// Start transitions ABSENT/STOPPED_WITH_REASON -> RUNNING, scheduling
// ticks at fixed rate onto submit (the shared scheduler worker pool).
func (inst *Instance) Start(submit func(func())) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.state == StateRunning {
		return
	}
	inst.state = StateRunning
	inst.reason = ""
	inst.stoppedOnce = sync.Once{}

	interval := time.Duration(inst.def.intervalSec()) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	inst.ticker = time.NewTicker(interval)
	inst.stopCh = make(chan struct{})
	ticker, stopCh := inst.ticker, inst.stopCh

	go func() {
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				inst.active.Add(1)
				submit(func() {
					defer inst.active.Done()
					inst.tick(context.Background())
				})
			}
		}
	}()
}

// isRunning reports whether the instance believes it is still scheduled.
func (inst *Instance) isRunning() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state == StateRunning
}

// tick runs one sampling pass: validate the connection, honor the overlap
// policy, run the configured collector, and store the latest result.
func (inst *Instance) tick(ctx context.Context) {
	if !inst.isRunning() {
		return
	}

	conn, err := inst.getConn(ctx, inst.sessionID)
	if err != nil || conn.DB == nil {
		inst.autoStop("connection is closed")
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	pingErr := conn.DB.PingContext(pingCtx)
	cancel()
	if pingErr != nil {
		inst.autoStop("connection is closed")
		return
	}

	if inst.def.runPolicy().onOverlapOrDefault() == "skip" {
		if !atomic.CompareAndSwapInt32(&inst.collecting, 0, 1) {
			return
		}
		defer atomic.StoreInt32(&inst.collecting, 0)
	}

	result, err := inst.runCollector(ctx, conn)
	if err != nil {
		inst.autoStop(apperr.FlattenCause(err))
		return
	}
	if result == nil {
		inst.autoStop("collector returned null result")
		return
	}

	inst.mu.Lock()
	inst.latestResult = result
	inst.mu.Unlock()
}

func (inst *Instance) runCollector(ctx context.Context, conn executor.Conn) (interface{}, error) {
	target := inst.def.target()
	return inst.runner.RunCollector(ctx, conn, inst.dbType, target.CollectorID, target.CollectorRef)
}

// autoStop is idempotent: only the first caller sets the reason and
// notifies the manager.
func (inst *Instance) autoStop(reason string) {
	inst.stoppedOnce.Do(func() {
		inst.mu.Lock()
		inst.state = StateStoppedWithReason
		inst.reason = reason
		if inst.ticker != nil {
			inst.ticker.Stop()
		}
		if inst.stopCh != nil {
			close(inst.stopCh)
		}
		inst.mu.Unlock()
		inst.log.Warn("sampler auto-stopped",
			zap.String("session_id", inst.sessionID),
			zap.String("sampler_id", inst.samplerID),
			zap.String("reason", reason))
		if inst.onAutoStop != nil {
			inst.onAutoStop(inst, reason)
		}
	})
}

// Stop cancels the scheduled task (mayInterruptIfRunning=false) and waits
// up to 5s for the in-flight tick's latch, logging (not propagating) a
// timeout. It transitions RUNNING -> ABSENT; it does not close the
// underlying connection.
func (inst *Instance) Stop() {
	inst.mu.Lock()
	if inst.ticker != nil {
		inst.ticker.Stop()
	}
	if inst.stopCh != nil {
		select {
		case <-inst.stopCh:
		default:
			close(inst.stopCh)
		}
	}
	inst.state = StateAbsent
	inst.reason = ""
	inst.mu.Unlock()

	done := make(chan struct{})
	go func() {
		inst.active.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		inst.log.Warn("sampler stop gave up waiting for in-flight tick after 5s grace",
			zap.String("session_id", inst.sessionID), zap.String("sampler_id", inst.samplerID))
	}
}

// Status returns the instance's current state and, if STOPPED_WITH_REASON,
// the retained reason.
func (inst *Instance) Status() (State, string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state, inst.reason
}

// Snapshot returns the most recently collected result, if any.
func (inst *Instance) Snapshot() interface{} {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.latestResult
}
