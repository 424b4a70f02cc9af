// Package facade is the thin, host-facing boundary layer described in
// spec.md §4.6/§6: it validates arguments before any core state is
// mutated, shapes results into TaskOutcome/BatchOutcome, and adds the
// conveniences the core intentionally leaves out — retry-with-backoff
// (retry.go) and progress callbacks (below) — on top of the bare
// internal/engine.Pool and internal/autoconfig.Controller.
package facade

import (
	"fmt"
	"sync"
	"time"

	"github.com/vasic-digital/taskengine/internal/autoconfig"
	"github.com/vasic-digital/taskengine/internal/engine"
	"github.com/vasic-digital/taskengine/internal/logging"
)

// Config configures a new Engine.
type Config struct {
	Workers         int
	MaxMemoryLimit  uint64
	CleanupInterval time.Duration
	LogLevel        logging.Level
	AutoConfig      bool
	Strategy        autoconfig.Strategy
}

// DefaultConfig mirrors engine.DefaultPoolConfig's worker default and
// leaves Auto-Config disabled until the host opts in, either with
// Config.AutoConfig at New or later with Enable. Configure does not read
// AutoConfig.
func DefaultConfig() Config {
	return Config{
		Workers:         engine.DefaultPoolConfig().InitialWorkers,
		CleanupInterval: 30 * time.Second,
		LogLevel:        logging.Info,
		Strategy:        autoconfig.StrategyModerate,
	}
}

// Engine is the host-facing handle: one pool, one auto-config controller,
// no package-level globals — see SPEC_FULL.md's Design Notes on why the
// teacher's GetGlobalMetrics singleton pattern was not carried forward.
type Engine struct {
	pool *engine.Pool
	auto *autoconfig.Controller

	cancelled sync.Map // task id -> struct{}, set by CancelAwait
}

// New constructs an Engine from cfg and starts its pool and (if cfg.AutoConfig)
// its auto-config controller.
func New(cfg Config) *Engine {
	logging.SetLevel(cfg.LogLevel)

	poolCfg := engine.DefaultPoolConfig()
	if cfg.Workers > 0 {
		poolCfg.InitialWorkers = cfg.Workers
	}
	if cfg.CleanupInterval > 0 {
		poolCfg.Memory.CleanupInterval = cfg.CleanupInterval
	}

	p := engine.New(poolCfg)
	if cfg.MaxMemoryLimit > 0 {
		p.SetMaxMemoryLimit(cfg.MaxMemoryLimit)
	}

	ctrl := autoconfig.New(p)
	ctrl.SetStrategy(cfg.Strategy)
	if cfg.AutoConfig {
		ctrl.Enable()
	}

	return &Engine{pool: p, auto: ctrl}
}

// Submit admits a single callable and blocks until it finishes, returning
// its shaped outcome. This is the façade's "convenience form submit(one)"
// from spec.md §4.6: admission, dispatch, and await collapse into one call
// since the host rarely wants bare task ids for a single submission. The
// returned TaskOutcome carries everything the pool recorded; the pool's
// own record for id is Released immediately after, so the periodic Memory
// Manager sweep never has to reclaim it.
func (e *Engine) Submit(callable engine.Callable, opts engine.SubmitOptions) (TaskOutcome, error) {
	if callable == nil {
		return TaskOutcome{}, fmt.Errorf("%w: callable must not be nil", ErrArgumentInvalid)
	}

	id, err := e.pool.Submit(callable, opts)
	if err != nil {
		return TaskOutcome{}, wrapEngineErr(err)
	}

	e.pool.Await(id)
	outcome := e.outcomeFor(id)
	e.pool.Release(id)
	return outcome, nil
}

// SubmitMany admits n tasks built from factory(i), awaits all of them, and
// returns a shaped BatchOutcome. progress, if non-nil, is invoked once per
// completed task in the batch (spec.md §4.6's progress reporting). Each
// task's pool record is Released as soon as its outcome is captured here,
// the same way Submit does for a single task.
func (e *Engine) SubmitMany(n int, factory func(i int) engine.Callable, opts engine.SubmitOptions, progress func(TaskOutcome)) (BatchOutcome, error) {
	if n <= 0 || factory == nil {
		return BatchOutcome{}, fmt.Errorf("%w: count must be positive and factory must not be nil", ErrArgumentInvalid)
	}

	ids := e.pool.SubmitMany(n, factory, opts)

	batch := BatchOutcome{
		TaskIDs: ids,
		Results: make([][]byte, len(ids)),
		Errors:  make([]string, len(ids)),
		Type:    "batch",
	}

	for i, id := range ids {
		e.pool.Await(id)
		outcome := e.outcomeFor(id)
		e.pool.Release(id)
		batch.Results[i] = outcome.Data
		batch.Errors[i] = outcome.Error
		batch.Count++
		if outcome.Success {
			batch.SuccessCount++
		} else {
			batch.ErrorCount++
		}
		if progress != nil {
			e.invokeProgress(progress, outcome)
		}
	}
	return batch, nil
}

// invokeProgress recovers from a panicking progress callback so it never
// takes down the submitting goroutine, mirroring the callback-safety policy
// used throughout internal/autoconfig and internal/background.
func (e *Engine) invokeProgress(progress func(TaskOutcome), outcome TaskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().WithField("panic", r).Warn("facade: progress callback panicked, ignoring")
		}
	}()
	progress(outcome)
}

// CancelAwait removes the caller's own interest in a task's completion; the
// task itself keeps running to completion per spec.md §6. Any goroutine
// currently blocked in this Engine's Await(id) returns immediately.
func (e *Engine) CancelAwait(id uint64) bool {
	_, alreadyCancelled := e.cancelled.LoadOrStore(id, struct{}{})
	return !alreadyCancelled
}

// Await blocks until id finishes or CancelAwait(id) is called, whichever
// comes first.
func (e *Engine) Await(id uint64) {
	if e.pool.IsFinished(id) {
		return
	}
	done := make(chan struct{})
	go func() {
		e.pool.Await(id)
		close(done)
	}()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, cancelled := e.cancelled.Load(id); cancelled {
				return
			}
		}
	}
}

// AwaitAll awaits every id in turn.
func (e *Engine) AwaitAll(ids []uint64) {
	for _, id := range ids {
		e.Await(id)
	}
}

func (e *Engine) outcomeFor(id uint64) TaskOutcome {
	result := e.pool.GetResult(id)
	errStr := e.pool.GetError(id)
	return TaskOutcome{
		Success: errStr == "",
		Data:    result.Data,
		Error:   errStr,
		TaskID:  id,
		Type:    "single",
	}
}

// GetResult, GetError, HasError, and IsFinished pass straight through to the
// pool; the façade adds no behavior here beyond the inspection surface
// spec.md §6 names.
func (e *Engine) GetResult(id uint64) []byte    { return e.pool.GetResult(id).Data }
func (e *Engine) GetError(id uint64) string     { return e.pool.GetError(id) }
func (e *Engine) HasError(id uint64) bool       { return e.pool.HasError(id) }
func (e *Engine) IsFinished(id uint64) bool     { return e.pool.IsFinished(id) }
func (e *Engine) Stats() engine.StatsSnapshot   { return e.pool.Stats() }

// MemoryStats is the shape returned by spec.md §6's memory_stats().
type MemoryStats struct {
	LiveTasks     int
	FreeListSize  int
	MaxMemoryBytes uint64
	CanAllocate   bool
}

func (e *Engine) MemoryStats() MemoryStats {
	return MemoryStats{
		LiveTasks:      e.pool.LiveTaskCount(),
		FreeListSize:   e.pool.FreeListSize(),
		MaxMemoryBytes: e.pool.GetMaxMemoryLimit(),
		CanAllocate:    e.pool.CanAllocate(),
	}
}

// SystemInfo is the shape returned by spec.md §6's system_info().
type SystemInfo struct {
	WorkerCount int
	MaxWorkers  int
}

func (e *Engine) SystemInfo() SystemInfo {
	return SystemInfo{
		WorkerCount: e.pool.GetWorkerCount(),
		MaxWorkers:  engine.MaxWorkers(),
	}
}

// Configure applies a batch of configuration changes to the already-running
// Engine.
func (e *Engine) Configure(cfg Config) {
	if cfg.Workers > 0 {
		e.pool.SetWorkerCount(cfg.Workers)
	}
	if cfg.MaxMemoryLimit > 0 {
		e.pool.SetMaxMemoryLimit(cfg.MaxMemoryLimit)
	}
	if cfg.CleanupInterval > 0 {
		e.pool.SetCleanupInterval(cfg.CleanupInterval)
	}
	logging.SetLevel(cfg.LogLevel)
}

func (e *Engine) SetWorkerCount(n int)            { e.pool.SetWorkerCount(n) }
func (e *Engine) SetLogLevel(level logging.Level) { logging.SetLevel(level) }
func (e *Engine) SetMaxMemoryLimit(bytes uint64)  { e.pool.SetMaxMemoryLimit(bytes) }

// SetCleanupInterval retunes the pool's periodic reclamation sweep while
// the engine keeps running — the sweep is the only path that reclaims
// records for tasks the host never explicitly released, so its period is
// tunable independent of construction-time config.
func (e *Engine) SetCleanupInterval(d time.Duration) { e.pool.SetCleanupInterval(d) }

// Auto-Config control surface, passed straight through to the controller.
func (e *Engine) Enable()                                  { e.auto.Enable() }
func (e *Engine) Disable()                                 { e.auto.Disable() }
func (e *Engine) SetStrategy(s autoconfig.Strategy)         { e.auto.SetStrategy(s) }
func (e *Engine) SetWorkloadType(w autoconfig.WorkloadType) { e.auto.SetWorkloadType(w) }
func (e *Engine) ForceAnalysis()                            { e.auto.ForceAnalysis() }
func (e *Engine) GetMetricsHistory() []autoconfig.MetricsRecord {
	return e.auto.GetMetricsHistory()
}
func (e *Engine) GetRecommendations() autoconfig.Recommendations { return e.auto.GetRecommendations() }
func (e *Engine) GetLastAdjustment() autoconfig.AdjustmentInfo   { return e.auto.GetLastAdjustment() }
func (e *Engine) RegisterCallback(fn autoconfig.Callback)        { e.auto.RegisterCallback(fn) }

// Shutdown stops the auto-config controller and the pool, awaiting all
// outstanding tasks. Idempotent through the pool's own idempotent Shutdown.
func (e *Engine) Shutdown() {
	e.auto.Disable()
	e.pool.Shutdown()
}
