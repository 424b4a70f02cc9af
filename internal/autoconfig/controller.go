package autoconfig

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vasic-digital/taskengine/internal/engine"
	"github.com/vasic-digital/taskengine/internal/logging"
	"github.com/vasic-digital/taskengine/internal/multiproc"
)

// DefaultInterval is the controller's default analysis period.
const DefaultInterval = 5000 * time.Millisecond

// DefaultJobTriggerCount re-analyzes every N job completions in addition to
// the timer, per spec.md §4.4.
const DefaultJobTriggerCount = 50

// systemProbe reads host-wide CPU and memory utilization. A seam for tests,
// mirroring engine.memProbe's test-injection pattern.
type systemProbe func() (cpuPercent, memPercent float64, err error)

func gopsutilSystemProbe() (float64, float64, error) {
	cpuPercents, err := cpu.Percent(0, false)
	var cpuPct float64
	if err != nil || len(cpuPercents) == 0 {
		cpuPct = 0
	} else {
		cpuPct = cpuPercents[0]
	}

	vm, memErr := mem.VirtualMemory()
	var memPct float64
	if memErr != nil {
		memPct = 50.0
	} else {
		memPct = vm.UsedPercent
	}

	if err != nil {
		return cpuPct, memPct, err
	}
	return cpuPct, memPct, memErr
}

// Controller is the periodic auto-config loop. It observes an engine.Pool
// through its public surface only (Stats, GetWorkerCount, QueueDepth,
// SetWorkerCount) — it never reaches into pool internals, mirroring the
// teacher's AdaptiveWorkerPool scaling goroutine being a peer of, not a
// part of, the worker loop it tunes.
type Controller struct {
	pool *engine.Pool

	history      *history
	jobDurations *jobDurations

	enabled  int32 // atomic bool
	strategy atomic.Int32
	workload atomic.Int32

	recommendations atomic.Pointer[Recommendations]
	lastAdjustment  atomic.Pointer[AdjustmentInfo]

	currentTimeout atomic.Int64 // nanoseconds

	callbacksMu sync.Mutex
	callbacks   []Callback

	jobCompletions int64 // atomic, for the N-completions trigger

	sysProbe systemProbe

	interval        time.Duration
	jobTriggerCount int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	analysisMu sync.Mutex // serializes concurrent tick+force-analysis runs

	tickMu    sync.Mutex
	tickTotal int64
	tickAt    time.Time
}

// New creates a Controller bound to pool. The caller must call Enable() to
// start the periodic loop and Close() to stop it.
func New(pool *engine.Pool) *Controller {
	c := &Controller{
		pool:            pool,
		history:         newHistory(),
		jobDurations:    newJobDurations(),
		sysProbe:        gopsutilSystemProbe,
		interval:        DefaultInterval,
		jobTriggerCount: DefaultJobTriggerCount,
	}
	c.strategy.Store(int32(StrategyModerate))
	c.workload.Store(int32(WorkloadBalanced))
	c.currentTimeout.Store(int64(15 * time.Second))
	c.recommendations.Store(&Recommendations{})

	pool.OnJobComplete(c.onJobComplete)
	return c
}

// Enable starts the periodic analysis loop. A no-op if already enabled.
func (c *Controller) Enable() {
	if !atomic.CompareAndSwapInt32(&c.enabled, 0, 1) {
		return
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.wg.Add(1)
	go c.loop()
}

// Disable stops the periodic loop. A no-op if not enabled. Safe to call
// repeatedly; Enable() may be called again afterward to resume.
func (c *Controller) Disable() {
	if !atomic.CompareAndSwapInt32(&c.enabled, 1, 0) {
		return
	}
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) isEnabled() bool {
	return atomic.LoadInt32(&c.enabled) == 1
}

// SetStrategy changes the multiplier applied to future recommendations.
func (c *Controller) SetStrategy(s Strategy) {
	c.strategy.Store(int32(s))
}

// SetWorkloadType sets an operator hint. It does not override the
// classifier's per-tick output; it is reserved for future biasing (e.g.
// seeding the first tick before enough history has accumulated).
func (c *Controller) SetWorkloadType(w WorkloadType) {
	c.workload.Store(int32(w))
}

// ForceAnalysis runs one analysis tick immediately, outside the timer.
func (c *Controller) ForceAnalysis() {
	c.analyze()
}

// GetMetricsHistory returns a copy of the retained metrics records, oldest
// first.
func (c *Controller) GetMetricsHistory() []MetricsRecord {
	return c.history.snapshot()
}

// GetRecommendations returns the latest recommendation record.
func (c *Controller) GetRecommendations() Recommendations {
	return *c.recommendations.Load()
}

// GetLastAdjustment returns the most recent applied adjustment, or the zero
// value if none has been applied yet.
func (c *Controller) GetLastAdjustment() AdjustmentInfo {
	if a := c.lastAdjustment.Load(); a != nil {
		return *a
	}
	return AdjustmentInfo{}
}

// RegisterCallback adds fn to the set notified after each analysis tick.
func (c *Controller) RegisterCallback(fn Callback) {
	c.callbacksMu.Lock()
	defer c.callbacksMu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// onJobComplete is wired as the pool's completion hook; it feeds the
// bounded job-duration window and triggers a deferred analysis every
// jobTriggerCount completions.
func (c *Controller) onJobComplete(job engine.JobRecord) {
	c.jobDurations.record(job.DurationNs, job.Success)

	n := atomic.AddInt64(&c.jobCompletions, 1)
	if c.isEnabled() && n%c.jobTriggerCount == 0 {
		go c.analyze()
	}
}

func (c *Controller) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.analyze()
		}
	}
}

// analyze runs the full collect/classify/estimate/recommend/apply sequence
// once. Safe to call concurrently with itself (timer tick racing a forced
// or job-triggered analysis): only one runs at a time, the rest wait their
// turn rather than overlapping.
func (c *Controller) analyze() {
	c.analysisMu.Lock()
	defer c.analysisMu.Unlock()

	record := c.collect()
	prev, hadPrev := c.history.last()

	ratio := 1.0
	if hadPrev && prev.ThroughputPerSecond > 0 {
		ratio = record.ThroughputPerSecond / prev.ThroughputPerSecond
	}

	record.Pattern = classify(record, ratio)
	record.Complexity = estimateComplexity(record.MeanExecutionMs)
	c.history.append(record)

	strategy := Strategy(c.strategy.Load())
	currentTimeout := time.Duration(c.currentTimeout.Load())
	_, failureRate := c.jobDurations.meanMsAndSuccessRate()
	failureRate = 1 - failureRate

	recs := computeRecommendations(record, engine.MaxWorkers(), currentTimeout, failureRate, strategy)
	c.recommendations.Store(&recs)

	c.apply(recs, record)
	c.notifyCallbacks(recs)
}

// collect runs the three probes (system, pool, timing) concurrently via
// multiproc, mirroring spec.md §4.4 step 1's "parallelizable" framing.
func (c *Controller) collect() MetricsRecord {
	var cpuPct, memPct float64
	var stats engine.StatsSnapshot
	var queueDepth int
	var meanExecMs, successRate float64

	err := multiproc.ExecuteParallel(context.Background(), []func(ctx context.Context) error{
		func(ctx context.Context) error {
			p, m, err := c.sysProbe()
			cpuPct, memPct = p, m
			return err
		},
		func(ctx context.Context) error {
			stats = c.pool.Stats()
			queueDepth = c.pool.QueueDepth()
			return nil
		},
		func(ctx context.Context) error {
			meanExecMs, successRate = c.jobDurations.meanMsAndSuccessRate()
			return nil
		},
	})
	if err != nil {
		logging.Logger().WithError(err).Debug("autoconfig: metrics probe failed")
	}

	workerUtilization := 0.0
	if stats.ConfiguredWorkers > 0 {
		workerUtilization = float64(stats.Active) / float64(stats.ConfiguredWorkers)
	}

	throughput := c.throughputSinceLastTick(stats.Completed + stats.Failed)

	return MetricsRecord{
		Timestamp:           time.Now(),
		CPUUtilization:      cpuPct,
		MemoryUtilization:   memPct,
		WorkerCount:         stats.ConfiguredWorkers,
		ActiveJobs:          int(stats.Active),
		CompletedCount:      stats.Completed,
		FailedCount:         stats.Failed,
		WorkerUtilization:   workerUtilization,
		ThroughputPerSecond: throughput,
		MeanExecutionMs:     meanExecMs,
		SuccessRate:         successRate,
		QueueDepth:          queueDepth,
	}
}

// throughputSinceLastTick computes jobs/sec since the previous collect()
// call using the cumulative completed+failed count, per spec.md's
// "throughput (jobs/sec since last tick)" definition.
func (c *Controller) throughputSinceLastTick(total int64) float64 {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	now := time.Now()
	if c.tickAt.IsZero() {
		c.tickTotal = total
		c.tickAt = now
		return 0
	}

	elapsed := now.Sub(c.tickAt).Seconds()
	delta := total - c.tickTotal
	c.tickTotal = total
	c.tickAt = now
	if elapsed <= 0 {
		return 0
	}
	return float64(delta) / elapsed
}

// apply performs step 5: only the worker-count recommendation is applied
// automatically.
func (c *Controller) apply(recs Recommendations, record MetricsRecord) {
	if !recs.Worker.ShouldScaleUp && !recs.Worker.ShouldScaleDown {
		return
	}
	if recs.Worker.Recommended == record.WorkerCount {
		return
	}

	c.pool.SetWorkerCount(recs.Worker.Recommended)

	direction := "down"
	reason := "scale down: low worker utilization"
	if recs.Worker.ShouldScaleUp {
		direction = "up"
		reason = "scale up: high worker utilization"
	}
	c.pool.RecordScalingEvent(direction)

	adjustment := AdjustmentInfo{
		Reason: reason,
		ChangesMade: map[string]string{
			"worker_count": fmt.Sprintf("%d -> %d", record.WorkerCount, recs.Worker.Recommended),
		},
		PerformanceImpact: recs.Worker.Confidence,
		Timestamp:         time.Now(),
	}
	c.lastAdjustment.Store(&adjustment)
}

// notifyCallbacks invokes every registered callback with recs, recovering
// from (and logging) any panic so one misbehaving observer cannot break the
// analysis loop.
func (c *Controller) notifyCallbacks(recs Recommendations) {
	c.callbacksMu.Lock()
	callbacks := append([]Callback(nil), c.callbacks...)
	c.callbacksMu.Unlock()

	for _, cb := range callbacks {
		c.invokeCallback(cb, recs)
	}
}

func (c *Controller) invokeCallback(cb Callback, recs Recommendations) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().WithField("panic", r).Warn("autoconfig: recommendation callback panicked, ignoring")
		}
	}()
	cb(recs)
}
