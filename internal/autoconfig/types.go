// Package autoconfig implements the periodic controller that watches a
// pool's own statistics and job history and recommends (and, for worker
// count, applies) adjustments: worker count, task timeout, priority bias,
// batching, and the memory ceiling. It follows the teacher's
// internal/background.AdaptiveWorkerPool scaling-loop idiom, generalized
// into a standalone observer that drives an engine.Pool through its public
// SetWorkerCount method rather than reaching into pool internals.
package autoconfig

import "time"

// WorkloadPattern is the coarse classification of recent behavior.
type WorkloadPattern int

const (
	PatternMixed WorkloadPattern = iota
	PatternCpuBound
	PatternIoBound
	PatternMemoryBound
	PatternBurst
	PatternSteady
)

func (p WorkloadPattern) String() string {
	switch p {
	case PatternCpuBound:
		return "cpu_bound"
	case PatternIoBound:
		return "io_bound"
	case PatternMemoryBound:
		return "memory_bound"
	case PatternBurst:
		return "burst"
	case PatternSteady:
		return "steady"
	default:
		return "mixed"
	}
}

// WorkloadType is the operator-set hint accepted by SetWorkloadType; it is
// advisory only and does not override the classifier's own per-tick output.
type WorkloadType int

const (
	WorkloadBalanced WorkloadType = iota
	WorkloadCpuBound
	WorkloadIoBound
	WorkloadMemoryBound
)

// Complexity buckets mean execution time into a coarse scale used for the
// timeout recommendation's baseline.
type Complexity int

const (
	ComplexityTrivial Complexity = iota
	ComplexitySimple
	ComplexityModerate
	ComplexityComplex
	ComplexityHeavy
)

func (c Complexity) String() string {
	switch c {
	case ComplexityTrivial:
		return "trivial"
	case ComplexitySimple:
		return "simple"
	case ComplexityModerate:
		return "moderate"
	case ComplexityComplex:
		return "complex"
	case ComplexityHeavy:
		return "heavy"
	default:
		return "unknown"
	}
}

// Strategy scales the magnitude of every numeric recommendation delta; it
// never scales a confidence value.
type Strategy int

const (
	StrategyConservative Strategy = iota
	StrategyModerate
	StrategyAggressive
)

func (s Strategy) multiplier() float64 {
	switch s {
	case StrategyConservative:
		return 0.5
	case StrategyAggressive:
		return 2.0
	default:
		return 1.0
	}
}

// MetricsRecord is one collection tick's combined snapshot.
type MetricsRecord struct {
	Timestamp           time.Time
	CPUUtilization      float64
	MemoryUtilization   float64
	WorkerCount         int
	ActiveJobs          int
	CompletedCount      int64
	FailedCount         int64
	WorkerUtilization   float64
	ThroughputPerSecond float64
	MeanExecutionMs     float64
	SuccessRate         float64
	QueueDepth          int
	Pattern             WorkloadPattern
	Complexity          Complexity
}

// WorkerRecommendation is the worker-count facet of Recommendations.
type WorkerRecommendation struct {
	Recommended   int
	ShouldScaleUp bool
	ShouldScaleDown bool
	Confidence    float64
}

// TimeoutRecommendation is the per-task timeout facet.
type TimeoutRecommendation struct {
	Recommended   time.Duration
	ShouldAdjust  bool
	Confidence    float64
}

// PriorityRecommendation is the priority-bias facet.
type PriorityRecommendation struct {
	Bias       int
	Confidence float64
}

// BatchRecommendation is the batching facet.
type BatchRecommendation struct {
	Size         int
	ShouldBatch  bool
	Confidence   float64
}

// MemoryLimitRecommendation is the memory-ceiling facet.
type MemoryLimitRecommendation struct {
	RecommendedPercent float64
	ShouldAdjust       bool
	Confidence         float64
}

// Recommendations is the single latest value produced by an analysis tick.
// It is replaced wholesale, never mutated in place, so readers observe
// either the previous or the new record and never a torn mixture.
type Recommendations struct {
	Worker    WorkerRecommendation
	Timeout   TimeoutRecommendation
	Priority  PriorityRecommendation
	Batch     BatchRecommendation
	MemoryCap MemoryLimitRecommendation
	Timestamp time.Time
}

// AdjustmentInfo records a change the controller actually applied (today,
// only worker-count changes are applied automatically).
type AdjustmentInfo struct {
	Reason            string
	ChangesMade       map[string]string
	PerformanceImpact float64
	Timestamp         time.Time
}

// Callback receives the full recommendation record after each analysis
// tick. A panicking or erroring callback never reaches the controller.
type Callback func(Recommendations)
