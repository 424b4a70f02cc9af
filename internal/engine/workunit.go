package engine

import "time"

// workUnit is the scheduling atom: it owns the callable for one pending or
// running task, timing fields, and a non-owning back-pointer to the pool
// that dispatched it. workUnits are exclusively owned by whichever stage
// currently holds them (pool queue -> worker -> completion hook -> the
// Memory Manager's free-list) and are reset to their default state before
// being reused.
type workUnit struct {
	task     *TaskRecord
	callable Callable
	priority int

	enqueuedAt time.Time
	startedAt  time.Time
	finishedAt time.Time

	pool *Pool // non-owning; a workUnit never outlives its pool
}

// reset clears a workUnit for reuse from the free-list. acquireWorkUnit
// guarantees callers always see a workUnit in this state.
func (w *workUnit) reset() {
	w.task = nil
	w.callable = nil
	w.priority = 0
	w.enqueuedAt = time.Time{}
	w.startedAt = time.Time{}
	w.finishedAt = time.Time{}
	w.pool = nil
}
