package engine

import "sync/atomic"

// StatsSnapshot is an immutable view of the Stats Collector's counters at
// the moment it was taken. Eventually consistent under concurrent reads:
// a snapshot may observe counts that have not yet advanced past a
// just-completed task.
type StatsSnapshot struct {
	Active              int64
	Created             int64
	Completed           int64
	Failed              int64
	ThreadsCreated      int64
	FailedDispatches    int64
	MeanExecutionTimeNs int64
	SuccessRate         float64
	ConfiguredWorkers   int
}

// statsCollector atomically accumulates per-task counters. All fields are
// touched only via sync/atomic; Snapshot() never takes a lock.
type statsCollector struct {
	created          int64
	completed        int64
	failed           int64
	threadsCreated   int64
	failedDispatches int64
	execTimeSumNs    int64 // sum of execution durations, for the rolling mean
	execTimeCount    int64
}

func newStatsCollector() *statsCollector {
	return &statsCollector{}
}

func (s *statsCollector) recordCreated() {
	atomic.AddInt64(&s.created, 1)
}

func (s *statsCollector) recordThreadCreated() {
	atomic.AddInt64(&s.threadsCreated, 1)
}

func (s *statsCollector) recordFailedDispatch() {
	atomic.AddInt64(&s.failedDispatches, 1)
}

func (s *statsCollector) recordCompletion(success bool, durationNs int64) {
	if success {
		atomic.AddInt64(&s.completed, 1)
	} else {
		atomic.AddInt64(&s.failed, 1)
	}
	atomic.AddInt64(&s.execTimeSumNs, durationNs)
	atomic.AddInt64(&s.execTimeCount, 1)
}

// snapshot produces an immutable StatsSnapshot. workerCount is supplied by
// the caller (the Pool) since worker count is the pool's concern, not the
// collector's.
func (s *statsCollector) snapshot(workerCount int) StatsSnapshot {
	created := atomic.LoadInt64(&s.created)
	completed := atomic.LoadInt64(&s.completed)
	failed := atomic.LoadInt64(&s.failed)
	threads := atomic.LoadInt64(&s.threadsCreated)
	failedDispatches := atomic.LoadInt64(&s.failedDispatches)
	sumNs := atomic.LoadInt64(&s.execTimeSumNs)
	count := atomic.LoadInt64(&s.execTimeCount)

	active := created - completed - failed
	if active < 0 {
		active = 0
	}

	var mean int64
	if count > 0 {
		mean = sumNs / count
	}

	var successRate float64
	if completed+failed > 0 {
		successRate = float64(completed) / float64(completed+failed)
	}

	return StatsSnapshot{
		Active:              active,
		Created:             created,
		Completed:           completed,
		Failed:              failed,
		ThreadsCreated:      threads,
		FailedDispatches:    failedDispatches,
		MeanExecutionTimeNs: mean,
		SuccessRate:         successRate,
		ConfiguredWorkers:   workerCount,
	}
}
