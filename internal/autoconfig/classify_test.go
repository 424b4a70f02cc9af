package autoconfig

import "testing"

func TestClassifyCpuBound(t *testing.T) {
	m := MetricsRecord{CPUUtilization: 85, MemoryUtilization: 40}
	if got := classify(m, 1.0); got != PatternCpuBound {
		t.Fatalf("expected CpuBound, got %v", got)
	}
}

func TestClassifyIoBound(t *testing.T) {
	m := MetricsRecord{CPUUtilization: 20, MeanExecutionMs: 5}
	if got := classify(m, 1.0); got != PatternIoBound {
		t.Fatalf("expected IoBound, got %v", got)
	}
}

func TestClassifyMemoryBoundTakesPriorityOverSteady(t *testing.T) {
	m := MetricsRecord{CPUUtilization: 10, MemoryUtilization: 75, MeanExecutionMs: 50}
	if got := classify(m, 1.0); got != PatternMemoryBound {
		t.Fatalf("expected MemoryBound, got %v", got)
	}
}

func TestClassifyBurst(t *testing.T) {
	m := MetricsRecord{CPUUtilization: 10, MemoryUtilization: 10, MeanExecutionMs: 50}
	if got := classify(m, 2.0); got != PatternBurst {
		t.Fatalf("expected Burst, got %v", got)
	}
}

func TestClassifySteady(t *testing.T) {
	m := MetricsRecord{CPUUtilization: 10, MemoryUtilization: 10, MeanExecutionMs: 50}
	if got := classify(m, 1.05); got != PatternSteady {
		t.Fatalf("expected Steady, got %v", got)
	}
}

func TestClassifyMixedFallthrough(t *testing.T) {
	m := MetricsRecord{CPUUtilization: 10, MemoryUtilization: 10, MeanExecutionMs: 50}
	if got := classify(m, 1.3); got != PatternMixed {
		t.Fatalf("expected Mixed, got %v", got)
	}
}

func TestEstimateComplexityBuckets(t *testing.T) {
	cases := []struct {
		ms   float64
		want Complexity
	}{
		{0.5, ComplexityTrivial},
		{5, ComplexitySimple},
		{50, ComplexityModerate},
		{500, ComplexityComplex},
		{5000, ComplexityHeavy},
	}
	for _, c := range cases {
		if got := estimateComplexity(c.ms); got != c.want {
			t.Errorf("estimateComplexity(%v) = %v, want %v", c.ms, got, c.want)
		}
	}
}
