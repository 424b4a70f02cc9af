package autoconfig

import "time"

// timeoutBaselines maps Complexity to its baseline timeout, a direct data
// table per spec.md §4.4 step 4.
var timeoutBaselines = map[Complexity]time.Duration{
	ComplexityTrivial:  1 * time.Second,
	ComplexitySimple:   5 * time.Second,
	ComplexityModerate: 15 * time.Second,
	ComplexityComplex:  60 * time.Second,
	ComplexityHeavy:    300 * time.Second,
}

// priorityBiasTable maps WorkloadPattern to its base priority bias.
var priorityBiasTable = map[WorkloadPattern]int{
	PatternBurst:       10,
	PatternCpuBound:    5,
	PatternIoBound:     3,
	PatternMemoryBound: 1,
}

// recommendWorkers implements the worker-count facet of step 4. maxWorkers
// is the pool's hard ceiling (engine.MaxWorkers()).
func recommendWorkers(m MetricsRecord, maxWorkers int, strategy Strategy) WorkerRecommendation {
	mult := strategy.multiplier()
	delta := scaledDelta(1, mult)

	switch {
	case m.WorkerUtilization > 0.9 && m.WorkerCount < maxWorkers:
		extra := 0
		switch m.Pattern {
		case PatternCpuBound:
			extra = 1
		case PatternIoBound:
			extra = 2
		}
		recommended := m.WorkerCount + delta + scaledDelta(extra, mult)
		if recommended > maxWorkers {
			recommended = maxWorkers
		}
		return WorkerRecommendation{Recommended: recommended, ShouldScaleUp: true, Confidence: 0.8}
	case m.WorkerUtilization < 0.3 && m.WorkerCount > 1:
		extra := 0
		if m.Pattern == PatternMemoryBound {
			extra = 1
		}
		recommended := m.WorkerCount - delta - scaledDelta(extra, mult)
		if recommended < 1 {
			recommended = 1
		}
		return WorkerRecommendation{Recommended: recommended, ShouldScaleDown: true, Confidence: 0.7}
	default:
		return WorkerRecommendation{Recommended: m.WorkerCount, Confidence: 0}
	}
}

// scaledDelta applies a strategy multiplier to an integer delta, rounding
// to the nearest whole unit but never collapsing a positive delta to zero.
func scaledDelta(base int, mult float64) int {
	scaled := float64(base) * mult
	rounded := int(scaled + 0.5)
	if rounded < 1 && base > 0 {
		rounded = 1
	}
	return rounded
}

// recommendTimeout implements the timeout facet.
func recommendTimeout(m MetricsRecord, currentTimeout time.Duration, failureRate float64, strategy Strategy) TimeoutRecommendation {
	baseline := timeoutBaselines[m.Complexity]
	if failureRate > 0.1 {
		baseline = time.Duration(float64(baseline) * 1.5)
	}

	mult := strategy.multiplier()
	recommended := time.Duration(float64(baseline) * mult)

	confidence := 0.0
	if m.MeanExecutionMs > 0 {
		confidence = 0.7
	}

	shouldAdjust := absDuration(recommended-currentTimeout) > 5*time.Second
	return TimeoutRecommendation{Recommended: recommended, ShouldAdjust: shouldAdjust, Confidence: confidence}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// recommendPriority implements the priority-bias facet.
func recommendPriority(m MetricsRecord, strategy Strategy) PriorityRecommendation {
	base := priorityBiasTable[m.Pattern]
	bias := int(float64(base) * strategy.multiplier())

	switch {
	case m.QueueDepth > 100:
		bias += scaledDelta(2, strategy.multiplier())
	case m.QueueDepth < 10:
		bias -= scaledDelta(1, strategy.multiplier())
	}

	if bias > 10 {
		bias = 10
	}
	if bias < -10 {
		bias = -10
	}
	return PriorityRecommendation{Bias: bias, Confidence: 0.6}
}

// recommendBatch implements the batching facet.
func recommendBatch(m MetricsRecord) BatchRecommendation {
	switch {
	case m.MeanExecutionMs > 0 && m.MeanExecutionMs < 10:
		size := int(1000 / m.MeanExecutionMs)
		if size > 50 {
			size = 50
		}
		return BatchRecommendation{Size: size, ShouldBatch: size > 5, Confidence: 0.5}
	case m.Pattern == PatternBurst:
		return BatchRecommendation{Size: 25, ShouldBatch: true, Confidence: 0.5}
	case m.Pattern == PatternMemoryBound:
		return BatchRecommendation{Size: 5, ShouldBatch: m.QueueDepth > 20, Confidence: 0.5}
	default:
		return BatchRecommendation{Confidence: 0.5}
	}
}

// recommendMemoryCap implements the memory-ceiling facet.
func recommendMemoryCap(m MetricsRecord) MemoryLimitRecommendation {
	switch {
	case m.MemoryUtilization > 80:
		return MemoryLimitRecommendation{RecommendedPercent: 70, ShouldAdjust: true, Confidence: 0.9}
	case m.MemoryUtilization < 30:
		return MemoryLimitRecommendation{RecommendedPercent: 80, ShouldAdjust: true, Confidence: 0.7}
	default:
		return MemoryLimitRecommendation{Confidence: 0}
	}
}

// computeRecommendations runs step 4 in full over the latest metrics record.
func computeRecommendations(m MetricsRecord, maxWorkers int, currentTimeout time.Duration, failureRate float64, strategy Strategy) Recommendations {
	return Recommendations{
		Worker:    recommendWorkers(m, maxWorkers, strategy),
		Timeout:   recommendTimeout(m, currentTimeout, failureRate, strategy),
		Priority:  recommendPriority(m, strategy),
		Batch:     recommendBatch(m),
		MemoryCap: recommendMemoryCap(m),
		Timestamp: m.Timestamp,
	}
}
