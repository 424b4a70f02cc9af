package autoconfig

import (
	"sync"
	"testing"
	"time"

	"github.com/vasic-digital/taskengine/internal/engine"
)

func newTestPool(t *testing.T, workers int) *engine.Pool {
	t.Helper()
	cfg := engine.DefaultPoolConfig()
	cfg.InitialWorkers = workers
	p := engine.New(cfg)
	t.Cleanup(p.Shutdown)
	return p
}

func TestControllerForceAnalysisProducesRecommendations(t *testing.T) {
	pool := newTestPool(t, 2)
	ctrl := New(pool)

	ids := pool.SubmitMany(10, func(i int) engine.Callable {
		return func() (engine.Result, error) { return engine.Result{}, nil }
	}, engine.SubmitOptions{})
	pool.AwaitAll(ids)

	ctrl.ForceAnalysis()

	history := ctrl.GetMetricsHistory()
	if len(history) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(history))
	}

	recs := ctrl.GetRecommendations()
	if recs.Timestamp.IsZero() {
		t.Fatal("expected a stamped recommendation record")
	}
}

func TestControllerHistoryCapped(t *testing.T) {
	pool := newTestPool(t, 2)
	ctrl := New(pool)

	for i := 0; i < historyCapacity+10; i++ {
		ctrl.ForceAnalysis()
	}

	if got := len(ctrl.GetMetricsHistory()); got != historyCapacity {
		t.Fatalf("expected history capped at %d, got %d", historyCapacity, got)
	}
}

func TestControllerEnableDisableIsIdempotent(t *testing.T) {
	pool := newTestPool(t, 2)
	ctrl := New(pool)
	ctrl.interval = 20 * time.Millisecond

	ctrl.Enable()
	ctrl.Enable() // second call is a no-op
	time.Sleep(60 * time.Millisecond)
	ctrl.Disable()
	ctrl.Disable() // second call is a no-op

	if len(ctrl.GetMetricsHistory()) == 0 {
		t.Fatal("expected at least one tick to have run")
	}
}

func TestControllerCallbackPanicIsRecovered(t *testing.T) {
	pool := newTestPool(t, 2)
	ctrl := New(pool)

	var mu sync.Mutex
	called := false
	ctrl.RegisterCallback(func(Recommendations) {
		panic("boom")
	})
	ctrl.RegisterCallback(func(Recommendations) {
		mu.Lock()
		called = true
		mu.Unlock()
	})

	ctrl.ForceAnalysis()

	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Fatal("expected the second callback to still run after the first panicked")
	}
}

func TestControllerAppliesWorkerScaleUp(t *testing.T) {
	pool := newTestPool(t, 2)
	ctrl := New(pool)
	ctrl.sysProbe = func() (float64, float64, error) { return 10, 10, nil }

	var block sync.WaitGroup
	block.Add(1)
	ids := pool.SubmitMany(2, func(i int) engine.Callable {
		return func() (engine.Result, error) {
			block.Wait()
			return engine.Result{}, nil
		}
	}, engine.SubmitOptions{})

	// Both workers are now occupied: utilization should read ~1.0.
	time.Sleep(20 * time.Millisecond)
	ctrl.ForceAnalysis()
	block.Done()
	pool.AwaitAll(ids)

	adj := ctrl.GetLastAdjustment()
	if adj.Reason == "" {
		t.Fatal("expected a recorded adjustment after forced analysis under full utilization")
	}
}
