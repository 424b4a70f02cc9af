package autoconfig

import (
	"testing"
	"time"
)

func TestRecommendWorkersScalesUpOnHighUtilization(t *testing.T) {
	m := MetricsRecord{WorkerCount: 4, WorkerUtilization: 0.95, Pattern: PatternCpuBound}
	rec := recommendWorkers(m, 64, StrategyModerate)
	if !rec.ShouldScaleUp {
		t.Fatal("expected ShouldScaleUp")
	}
	if rec.Recommended <= 4 {
		t.Fatalf("expected recommended > 4, got %d", rec.Recommended)
	}
}

func TestRecommendWorkersScalesDownOnLowUtilization(t *testing.T) {
	m := MetricsRecord{WorkerCount: 8, WorkerUtilization: 0.1, Pattern: PatternMemoryBound}
	rec := recommendWorkers(m, 64, StrategyModerate)
	if !rec.ShouldScaleDown {
		t.Fatal("expected ShouldScaleDown")
	}
	if rec.Recommended >= 8 {
		t.Fatalf("expected recommended < 8, got %d", rec.Recommended)
	}
}

func TestRecommendWorkersNoChangeInMiddleBand(t *testing.T) {
	m := MetricsRecord{WorkerCount: 8, WorkerUtilization: 0.5}
	rec := recommendWorkers(m, 64, StrategyModerate)
	if rec.ShouldScaleUp || rec.ShouldScaleDown {
		t.Fatal("expected no scaling recommendation")
	}
	if rec.Recommended != 8 {
		t.Fatalf("expected recommended == 8, got %d", rec.Recommended)
	}
}

func TestRecommendWorkersNeverExceedsMax(t *testing.T) {
	m := MetricsRecord{WorkerCount: 63, WorkerUtilization: 0.99, Pattern: PatternIoBound}
	rec := recommendWorkers(m, 64, StrategyAggressive)
	if rec.Recommended > 64 {
		t.Fatalf("recommended %d exceeds max 64", rec.Recommended)
	}
}

func TestRecommendTimeoutUsesComplexityBaseline(t *testing.T) {
	m := MetricsRecord{Complexity: ComplexityModerate, MeanExecutionMs: 50}
	rec := recommendTimeout(m, 15*time.Second, 0, StrategyModerate)
	if rec.Recommended != 15*time.Second {
		t.Fatalf("expected 15s baseline, got %v", rec.Recommended)
	}
	if rec.Confidence != 0.7 {
		t.Fatalf("expected confidence 0.7, got %v", rec.Confidence)
	}
}

func TestRecommendTimeoutAppliesFailurePenalty(t *testing.T) {
	m := MetricsRecord{Complexity: ComplexityModerate, MeanExecutionMs: 50}
	rec := recommendTimeout(m, 15*time.Second, 0.2, StrategyModerate)
	if rec.Recommended != 22500*time.Millisecond {
		t.Fatalf("expected 22.5s with failure penalty, got %v", rec.Recommended)
	}
}

func TestRecommendPriorityClampedToRange(t *testing.T) {
	m := MetricsRecord{Pattern: PatternBurst, QueueDepth: 500}
	rec := recommendPriority(m, StrategyAggressive)
	if rec.Bias > 10 || rec.Bias < -10 {
		t.Fatalf("bias %d out of clamp range", rec.Bias)
	}
}

func TestRecommendBatchFastTasks(t *testing.T) {
	m := MetricsRecord{MeanExecutionMs: 2}
	rec := recommendBatch(m)
	if !rec.ShouldBatch {
		t.Fatal("expected ShouldBatch for fast tasks")
	}
	if rec.Size > 50 {
		t.Fatalf("batch size %d exceeds cap of 50", rec.Size)
	}
}

func TestRecommendMemoryCapHighPressure(t *testing.T) {
	m := MetricsRecord{MemoryUtilization: 85}
	rec := recommendMemoryCap(m)
	if !rec.ShouldAdjust || rec.RecommendedPercent != 70 {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}
}

func TestRecommendMemoryCapLowPressure(t *testing.T) {
	m := MetricsRecord{MemoryUtilization: 20}
	rec := recommendMemoryCap(m)
	if !rec.ShouldAdjust || rec.RecommendedPercent != 80 {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}
}
