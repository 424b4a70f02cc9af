package autoconfig

import "sync"

const historyCapacity = 100

// jobHistoryCapacity bounds how many completed-job durations feed the
// timing probe's mean, per spec.md §4.4 ("bounded to last ≤1,000 jobs").
const jobHistoryCapacity = 1000

// history is a bounded FIFO deque of MetricsRecord, grounded on the
// teacher's periodic metrics-sampling loop in
// internal/background/worker_pool.go (it keeps a capped slice of recent
// samples rather than reaching for container/ring).
type history struct {
	mu      sync.Mutex
	records []MetricsRecord
}

func newHistory() *history {
	return &history{records: make([]MetricsRecord, 0, historyCapacity)}
}

func (h *history) append(r MetricsRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	if len(h.records) > historyCapacity {
		h.records = h.records[len(h.records)-historyCapacity:]
	}
}

func (h *history) snapshot() []MetricsRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]MetricsRecord, len(h.records))
	copy(out, h.records)
	return out
}

func (h *history) last() (MetricsRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		return MetricsRecord{}, false
	}
	return h.records[len(h.records)-1], true
}

// jobDurations is a bounded FIFO ring of completed-job execution durations
// in nanoseconds, feeding the timing probe's mean over the most recent
// jobs without unbounded growth.
type jobDurations struct {
	mu        sync.Mutex
	durations []int64
	successes []bool
}

func newJobDurations() *jobDurations {
	return &jobDurations{
		durations: make([]int64, 0, jobHistoryCapacity),
		successes: make([]bool, 0, jobHistoryCapacity),
	}
}

func (j *jobDurations) record(durationNs int64, success bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.durations = append(j.durations, durationNs)
	j.successes = append(j.successes, success)
	if len(j.durations) > jobHistoryCapacity {
		over := len(j.durations) - jobHistoryCapacity
		j.durations = j.durations[over:]
		j.successes = j.successes[over:]
	}
}

// meanMsAndSuccessRate returns the mean duration in the retained window, in
// milliseconds, and the success rate over the same window.
func (j *jobDurations) meanMsAndSuccessRate() (meanMs float64, successRate float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := len(j.durations)
	if n == 0 {
		return 0, 0
	}
	var sum int64
	var ok int
	for i, d := range j.durations {
		sum += d
		if j.successes[i] {
			ok++
		}
	}
	meanMs = float64(sum) / float64(n) / 1e6
	successRate = float64(ok) / float64(n)
	return meanMs, successRate
}
