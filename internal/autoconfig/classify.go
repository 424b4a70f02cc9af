package autoconfig

// classificationRule is one row of the pattern decision table: first
// matching predicate wins. Kept as a data table rather than an if/else
// ladder per spec.md §9's explicit guidance, so new patterns slot in as new
// rows instead of restructuring code.
type classificationRule struct {
	pattern WorkloadPattern
	match   func(m MetricsRecord, throughputRatio float64) bool
}

var classificationTable = []classificationRule{
	{
		pattern: PatternCpuBound,
		match: func(m MetricsRecord, _ float64) bool {
			return m.CPUUtilization > 80 && m.MemoryUtilization <= 70
		},
	},
	{
		pattern: PatternIoBound,
		match: func(m MetricsRecord, _ float64) bool {
			return m.MeanExecutionMs < 10 && m.CPUUtilization <= 80
		},
	},
	{
		pattern: PatternMemoryBound,
		match: func(m MetricsRecord, _ float64) bool {
			return m.MemoryUtilization > 70
		},
	},
	{
		pattern: PatternBurst,
		match: func(_ MetricsRecord, ratio float64) bool {
			return ratio > 1.5
		},
	},
	{
		pattern: PatternSteady,
		match: func(_ MetricsRecord, ratio float64) bool {
			return abs(ratio-1) < 0.2
		},
	},
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// classify evaluates the decision table against m and the throughput ratio
// against the previous tick (1.0 when there is no previous tick to compare
// against). The first matching rule wins; no match falls through to Mixed.
func classify(m MetricsRecord, throughputRatio float64) WorkloadPattern {
	for _, rule := range classificationTable {
		if rule.match(m, throughputRatio) {
			return rule.pattern
		}
	}
	return PatternMixed
}

// complexityTable maps a mean-execution-time upper bound (in ms) to a
// Complexity bucket; the first bound the mean falls under wins.
var complexityTable = []struct {
	upperBoundMs float64
	level        Complexity
}{
	{upperBoundMs: 1, level: ComplexityTrivial},
	{upperBoundMs: 10, level: ComplexitySimple},
	{upperBoundMs: 100, level: ComplexityModerate},
	{upperBoundMs: 1000, level: ComplexityComplex},
}

func estimateComplexity(meanExecMs float64) Complexity {
	for _, row := range complexityTable {
		if meanExecMs < row.upperBoundMs {
			return row.level
		}
	}
	return ComplexityHeavy
}
