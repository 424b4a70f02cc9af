// Package engine implements the scheduler/worker-pool core: task
// admission, dispatch to a bounded goroutine pool, per-task lifecycle and
// result capture, memory-pressure gating, and statistics aggregation. It is
// deliberately boundary-agnostic — callers are plain Go funcs, results are
// opaque byte payloads, and the package has no notion of a host language.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vasic-digital/taskengine/internal/logging"
)

// SubmitOptions carries the optional per-submission knobs from spec.md
// §4.1: priority is honored best-effort by the internal ready queue; it is
// never a hard scheduling guarantee.
type SubmitOptions struct {
	Priority int
}

// PoolConfig configures a Pool at construction time.
type PoolConfig struct {
	// InitialWorkers is the worker count New starts with. Defaults to
	// runtime.NumCPU(), or 4 if that reports zero or less.
	InitialWorkers int
	Memory         MemoryConfig
}

// DefaultPoolConfig returns the spec's defaults.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.NumCPU()
	if workers <= 0 {
		workers = 4
	}
	return PoolConfig{
		InitialWorkers: workers,
		Memory:         DefaultMemoryConfig(),
	}
}

// MaxWorkers is min(hardware_concurrency * 4, 512) per spec.md §4.1.
func MaxWorkers() int {
	n := runtime.NumCPU() * 4
	if n > 512 {
		return 512
	}
	if n < 1 {
		return 1
	}
	return n
}

// Pool is the fixed-capacity worker pool. It accepts tasks, dispatches them
// to a worker goroutine, and surfaces completion through TaskRecords held
// in its task table.
type Pool struct {
	mem     *memoryManager
	stats   *statsCollector
	metrics *PoolMetrics
	queue   *priorityQueue

	tableMu sync.RWMutex
	table   map[uint64]*TaskRecord

	nextID uint64

	workerCount int32 // atomic
	targetMu    sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shuttingDown int32 // atomic bool

	affinityWarnOnce sync.Once
	nextAffinity     int32

	onJobComplete func(JobRecord)

	cleanupReset chan time.Duration
}

// JobRecord is what the pool reports to an interested observer (the
// auto-config controller) after each task completes.
type JobRecord struct {
	TaskID      uint64
	Success     bool
	DurationNs  int64
	CompletedAt time.Time
}

// New creates a Pool from cfg and starts its worker goroutines and cleanup
// sweep. The caller must eventually call Shutdown.
func New(cfg PoolConfig) *Pool {
	if cfg.InitialWorkers <= 0 {
		cfg = DefaultPoolConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		mem:          newMemoryManager(cfg.Memory),
		stats:        newStatsCollector(),
		metrics:      newPoolMetrics(),
		queue:        newPriorityQueue(),
		table:        make(map[uint64]*TaskRecord),
		ctx:          ctx,
		cancel:       cancel,
		cleanupReset: make(chan time.Duration, 1),
	}

	initial := clamp(cfg.InitialWorkers, 1, MaxWorkers())
	p.metrics.WorkersTotal.Set(float64(initial))
	for i := 0; i < initial; i++ {
		p.spawnWorker()
	}

	p.wg.Add(1)
	go p.cleanupLoop(cfg.Memory.CleanupInterval)

	return p
}

// OnJobComplete registers the single callback invoked after every task
// completes (used by the auto-config controller to build its job
// history). autoconfig.New registers the controller's hook here; the facade
// does not expose it.
func (p *Pool) OnJobComplete(fn func(JobRecord)) {
	p.onJobComplete = fn
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Submit admits a callable for asynchronous execution and returns its id
// immediately; the task starts out Pending. Returns ErrShutdownInProgress
// or ErrAdmissionDenied per the spec's error taxonomy.
func (p *Pool) Submit(callable Callable, opts SubmitOptions) (uint64, error) {
	if atomic.LoadInt32(&p.shuttingDown) == 1 {
		return 0, ErrShutdownInProgress
	}
	if !p.mem.canAllocate() {
		return 0, ErrAdmissionDenied
	}

	id := atomic.AddUint64(&p.nextID, 1)
	record := newTaskRecord(id, callable, opts.Priority)

	// The record must be visible in the task table before the unit can be
	// dequeued by a worker, so Await/GetResult never race a worker that
	// has already started executing it.
	p.stats.recordCreated()
	p.mem.registerTask(id)
	p.tableMu.Lock()
	p.table[id] = record
	p.tableMu.Unlock()

	unit := p.mem.acquireWorkUnit()
	unit.task = record
	unit.callable = callable
	unit.priority = opts.Priority
	unit.enqueuedAt = time.Now()
	unit.pool = p

	if !p.queue.push(unit, opts.Priority) {
		// The queue closed between admission and enqueue (a shutdown
		// race): this is a platform-level dispatch failure. Reclaim
		// everything we just registered.
		p.mem.releaseWorkUnit(unit)
		p.mem.markForCleanup(id)
		p.tableMu.Lock()
		delete(p.table, id)
		p.tableMu.Unlock()
		p.stats.recordFailedDispatch()
		p.stats.recordCompletion(false, 0)
		return 0, ErrDispatchFailed
	}

	p.metrics.QueueDepth.Set(float64(p.queue.len()))
	return id, nil
}

// SubmitMany admits n tasks built from factory(i). Admission is atomic only
// per-task: partial acceptance is allowed, and the caller only gets ids for
// tasks that were actually admitted.
func (p *Pool) SubmitMany(n int, factory func(i int) Callable, opts SubmitOptions) []uint64 {
	ids := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		id, err := p.Submit(factory(i), opts)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// SubmitSlice is the bulk form that takes pre-built callables.
func (p *Pool) SubmitSlice(callables []Callable, opts SubmitOptions) []uint64 {
	return p.SubmitMany(len(callables), func(i int) Callable { return callables[i] }, opts)
}

// Await blocks until the task reaches Finished. Returns immediately if
// already finished; a no-op (returns immediately) for an unknown id.
func (p *Pool) Await(id uint64) {
	record, ok := p.lookup(id)
	if !ok {
		return
	}
	record.await()
}

// AwaitAll awaits every id in turn.
func (p *Pool) AwaitAll(ids []uint64) {
	for _, id := range ids {
		p.Await(id)
	}
}

func (p *Pool) lookup(id uint64) (*TaskRecord, bool) {
	p.tableMu.RLock()
	defer p.tableMu.RUnlock()
	r, ok := p.table[id]
	return r, ok
}

// GetResult returns the stored result payload. An unknown id returns an
// empty Result, per spec.
func (p *Pool) GetResult(id uint64) Result {
	record, ok := p.lookup(id)
	if !ok || !record.isFinished() {
		return Result{}
	}
	result, _ := record.outcome()
	return result
}

// GetError returns the task's error string, or the "Tasklet not found."
// sentinel for an unknown id.
func (p *Pool) GetError(id uint64) string {
	record, ok := p.lookup(id)
	if !ok {
		return ErrUnknownTask.Error()
	}
	if !record.isFinished() {
		return ""
	}
	_, err := record.outcome()
	if err == nil {
		return ""
	}
	return err.Error()
}

// HasError reports whether a finished task ended in failure.
func (p *Pool) HasError(id uint64) bool {
	record, ok := p.lookup(id)
	if !ok || !record.isFinished() {
		return false
	}
	_, err := record.outcome()
	return err != nil
}

// IsFinished reports whether the task has completed. Absence (an unknown or
// already-released id) is treated as finished, per spec.
func (p *Pool) IsFinished(id uint64) bool {
	record, ok := p.lookup(id)
	if !ok {
		return true
	}
	return record.isFinished()
}

// Release drops a task's record from the task table once the caller no
// longer needs it, and tells the Memory Manager the id no longer counts
// against the live-task cap.
func (p *Pool) Release(id uint64) {
	p.tableMu.Lock()
	record, ok := p.table[id]
	if ok {
		delete(p.table, id)
	}
	p.tableMu.Unlock()
	if ok {
		record.release()
		p.mem.markForCleanup(id)
	}
}

// SetWorkerCount clamps n to [1, MaxWorkers()] and adjusts the live worker
// goroutines to match. Shrinking never interrupts an in-flight worker: per
// the spec's open question, extra workers stop themselves the next time
// they would otherwise pick up new work.
func (p *Pool) SetWorkerCount(n int) {
	target := clamp(n, 1, MaxWorkers())
	p.metrics.WorkersTotal.Set(float64(target))

	p.targetMu.Lock()
	defer p.targetMu.Unlock()

	current := int(atomic.LoadInt32(&p.workerCount))
	if target == current {
		return
	}
	if target > current {
		for i := 0; i < target-current; i++ {
			p.spawnWorker()
		}
		return
	}
	for i := 0; i < current-target; i++ {
		p.stopOneWorker()
	}
}

// GetWorkerCount returns the live worker goroutine count.
func (p *Pool) GetWorkerCount() int {
	return int(atomic.LoadInt32(&p.workerCount))
}

// Stats returns an immutable snapshot of the Stats Collector.
func (p *Pool) Stats() StatsSnapshot {
	return p.stats.snapshot(p.GetWorkerCount())
}

// QueueDepth returns the number of work units currently waiting to be
// dispatched to a worker.
func (p *Pool) QueueDepth() int {
	return p.queue.len()
}

// RecordScalingEvent increments the scaling-events counter for the given
// direction ("up" or "down"). Exposed so internal/autoconfig can attribute
// an applied worker-count change to the pool's own metrics without
// reaching into Pool internals.
func (p *Pool) RecordScalingEvent(direction string) {
	p.metrics.ScalingEvents.WithLabelValues(direction).Inc()
}

// Shutdown refuses new submissions, awaits all outstanding tasks, and tears
// down workers. Idempotent.
func (p *Pool) Shutdown() {
	if !atomic.CompareAndSwapInt32(&p.shuttingDown, 0, 1) {
		return
	}
	p.queue.close()
	p.cancel()
	p.wg.Wait()
}

// spawnWorker starts one worker goroutine and increments the live count.
func (p *Pool) spawnWorker() {
	atomic.AddInt32(&p.workerCount, 1)
	p.stats.recordThreadCreated()
	p.metrics.WorkersActive.Inc()
	p.wg.Add(1)
	go p.workerLoop()
}

// stopOneWorker signals a single worker to exit after its current
// iteration. It pushes one poison-pill unit onto the shared ready queue
// rather than using per-worker channels, so no per-worker registration
// state is needed for teardown.
func (p *Pool) stopOneWorker() {
	// A worker decrements workerCount itself on exit; here we just ask one
	// worker, chosen arbitrarily, to leave by pushing a poison pill that
	// the next idle worker consumes instead of real work.
	p.queue.push(&workUnit{}, -1<<31) // highest priority: picked up first
}

// workerLoop is the main loop for a single worker goroutine. Each worker is
// given a short id for log correlation, the same way the teacher's
// AdaptiveWorkerPool tags every worker goroutine with a uuid prefix.
func (p *Pool) workerLoop() {
	workerID := uuid.New().String()[:8]
	defer p.wg.Done()
	defer func() {
		atomic.AddInt32(&p.workerCount, -1)
		p.metrics.WorkersActive.Dec()
		logging.Logger().WithField("worker_id", workerID).Debug("taskengine: worker exiting")
	}()

	p.pinAffinityBestEffort()

	for {
		unit, ok := p.queue.pop()
		if !ok {
			return
		}
		if unit.task == nil {
			// Poison pill from stopOneWorker: this worker is the one that
			// leaves.
			return
		}

		p.metrics.QueueDepth.Set(float64(p.queue.len()))
		p.executeUnit(unit)
	}
}

// pinAffinityBestEffort attempts to pin the calling worker to a CPU. Go
// exposes no portable, non-cgo way to pin an OS thread from user-space, so
// this is a logged no-op — see SPEC_FULL.md §4.1 and the Design Notes.
func (p *Pool) pinAffinityBestEffort() {
	idx := atomic.AddInt32(&p.nextAffinity, 1) % int32(runtime.NumCPU())
	p.affinityWarnOnce.Do(func() {
		logging.Logger().WithField("target_cpu", idx).Warn(
			"taskengine: CPU affinity pinning is unsupported on this platform without cgo; ignoring")
	})
}

// executeUnit runs one task's callable inside a panic-recovering wrapper,
// stamps timing, stores the outcome, and recycles the work unit.
func (p *Pool) executeUnit(unit *workUnit) {
	record := unit.task
	record.markRunning()
	unit.startedAt = time.Now()

	result, err := p.invokeSafely(unit.callable)

	unit.finishedAt = time.Now()
	duration := unit.finishedAt.Sub(unit.startedAt)

	record.markFinished(result, err)

	p.stats.recordCompletion(err == nil, duration.Nanoseconds())
	p.metrics.TaskDuration.Observe(duration.Seconds())
	if err == nil {
		p.metrics.TasksTotal.WithLabelValues("completed").Inc()
	} else {
		p.metrics.TasksTotal.WithLabelValues("failed").Inc()
	}

	// Deliberately does not call p.mem.markForCleanup here: a task remains
	// "live" for admission-cap purposes until its record is actually
	// reclaimed, either by the host calling Release or by the periodic
	// sweep below — otherwise the memory manager's liveID set and the
	// pool's task table disagree about which ids still exist, and the
	// sweep would have nothing left to reclaim on its next tick.

	if p.onJobComplete != nil {
		p.onJobComplete(JobRecord{
			TaskID:      record.id,
			Success:     err == nil,
			DurationNs:  duration.Nanoseconds(),
			CompletedAt: unit.finishedAt,
		})
	}

	p.mem.releaseWorkUnit(unit)
}

// invokeSafely traps a panicking callable the same way a throwing callable
// is trapped in the spec's host languages: the error string is captured and
// the pool continues.
func (p *Pool) invokeSafely(callable Callable) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return callable()
}

// cleanupLoop runs the Memory Manager's periodic reclamation sweep, at an
// interval retunable at runtime via SetCleanupInterval.
func (p *Pool) cleanupLoop(interval time.Duration) {
	defer p.wg.Done()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.mem.sweep(p.isReleasable)
		case d := <-p.cleanupReset:
			ticker.Reset(d)
		}
	}
}

// isReleasable is the sweep's per-id reclamation step: an id already absent
// from the task table (explicitly Released by the host) is reclaimable
// outright; an id still present is reclaimable only once its record has
// reached Finished, in which case this removes it from the table itself —
// the sweep is what reclaims records the host never explicitly Release()s.
func (p *Pool) isReleasable(id uint64) bool {
	p.tableMu.Lock()
	record, stillTracked := p.table[id]
	if !stillTracked {
		p.tableMu.Unlock()
		return true
	}
	if !record.isFinished() {
		p.tableMu.Unlock()
		return false
	}
	delete(p.table, id)
	p.tableMu.Unlock()
	record.release()
	return true
}

// SetCleanupInterval retunes the periodic reclamation sweep's period while
// the pool keeps running. A non-positive value is ignored.
func (p *Pool) SetCleanupInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-p.cleanupReset:
	default:
	}
	p.cleanupReset <- d
}

// FreeListSize exposes the Memory Manager's current free-list size, mainly
// for tests asserting the "never exceeds maximum" invariant.
func (p *Pool) FreeListSize() int {
	return p.mem.freeListSize()
}

// LiveTaskCount exposes the Memory Manager's live-task count.
func (p *Pool) LiveTaskCount() int {
	return p.mem.liveCount()
}

// CanAllocate exposes the Memory Manager's admission check, mainly so the
// facade and tests can observe pressure without attempting a submission.
func (p *Pool) CanAllocate() bool {
	return p.mem.canAllocate()
}

// SetMaxMemoryLimit sets the Memory Manager's process-wide byte ceiling.
func (p *Pool) SetMaxMemoryLimit(bytes uint64) { p.mem.setMaxMemoryLimit(bytes) }

// GetMaxMemoryLimit returns the configured ceiling.
func (p *Pool) GetMaxMemoryLimit() uint64 { return p.mem.getMaxMemoryLimit() }

// injectMemoryProbe overrides the Memory Manager's system-memory probe;
// used by tests to simulate pressure (spec scenario S4).
func (p *Pool) injectMemoryProbe(probe func() (percent float64, usedBytes uint64, err error)) {
	p.mem.mu.Lock()
	defer p.mem.mu.Unlock()
	p.mem.probe = probe
}
