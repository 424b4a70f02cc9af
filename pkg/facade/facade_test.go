package facade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vasic-digital/taskengine/internal/engine"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 2
	e := New(cfg)
	t.Cleanup(e.Shutdown)
	return e
}

func TestSubmitReturnsShapedOutcome(t *testing.T) {
	e := newTestEngine(t)
	outcome, err := e.Submit(func() (engine.Result, error) {
		return engine.Result{Data: []byte("ok")}, nil
	}, engine.SubmitOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Success || string(outcome.Data) != "ok" || outcome.Type != "single" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestSubmitRejectsNilCallable(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Submit(nil, engine.SubmitOptions{})
	if !errors.Is(err, ErrArgumentInvalid) {
		t.Fatalf("expected ErrArgumentInvalid, got %v", err)
	}
}

func TestSubmitCapturesTaskFailure(t *testing.T) {
	e := newTestEngine(t)
	outcome, err := e.Submit(func() (engine.Result, error) {
		return engine.Result{}, errors.New("boom")
	}, engine.SubmitOptions{})
	if err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if outcome.Success || outcome.Error == "" {
		t.Fatalf("expected a captured task failure, got %+v", outcome)
	}
}

func TestSubmitManyTracksSuccessAndErrorCounts(t *testing.T) {
	e := newTestEngine(t)
	var progressCalls int
	batch, err := e.SubmitMany(5, func(i int) engine.Callable {
		return func() (engine.Result, error) {
			if i%2 == 0 {
				return engine.Result{}, errors.New("odd failure")
			}
			return engine.Result{}, nil
		}
	}, engine.SubmitOptions{}, func(TaskOutcome) { progressCalls++ })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Count != 5 {
		t.Fatalf("expected count 5, got %d", batch.Count)
	}
	if batch.SuccessCount+batch.ErrorCount != batch.Count {
		t.Fatalf("success+error counts must sum to count: %+v", batch)
	}
	if progressCalls != 5 {
		t.Fatalf("expected 5 progress calls, got %d", progressCalls)
	}
}

func TestCancelAwaitStopsWaitingWithoutStoppingTask(t *testing.T) {
	e := newTestEngine(t)
	release := make(chan struct{})
	id, err := e.pool.Submit(func() (engine.Result, error) {
		<-release
		return engine.Result{Data: []byte("done")}, nil
	}, engine.SubmitOptions{})
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		e.CancelAwait(id)
	}()

	start := time.Now()
	e.Await(id)
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("CancelAwait did not release the waiting goroutine promptly")
	}

	if e.IsFinished(id) {
		t.Fatal("task should still be running after CancelAwait")
	}
	close(release)
	e.pool.Await(id)
	if !e.IsFinished(id) {
		t.Fatal("task should complete after release")
	}
}

func TestSubmitWithRetryEventuallySucceeds(t *testing.T) {
	e := newTestEngine(t)
	attempts := 0
	outcome, err := e.SubmitWithRetry(context.Background(), func() (engine.Result, error) {
		attempts++
		if attempts < 2 {
			return engine.Result{}, errors.New("transient")
		}
		return engine.Result{Data: []byte("ok")}, nil
	}, RetryOptions{Attempts: 5, BaseDelay: time.Millisecond}, engine.SubmitOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("expected eventual success, got %+v", outcome)
	}
	if attempts < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts)
	}
}

func TestSubmitWithRetryExhaustsAttempts(t *testing.T) {
	e := newTestEngine(t)
	outcome, err := e.SubmitWithRetry(context.Background(), func() (engine.Result, error) {
		return engine.Result{}, errors.New("always fails")
	}, RetryOptions{Attempts: 2, BaseDelay: time.Millisecond}, engine.SubmitOptions{})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if outcome.Success {
		t.Fatal("expected a failed outcome")
	}
}

func TestMemoryStatsAndSystemInfo(t *testing.T) {
	e := newTestEngine(t)
	mem := e.MemoryStats()
	if mem.FreeListSize < 0 {
		t.Fatalf("unexpected negative free list size: %+v", mem)
	}
	info := e.SystemInfo()
	if info.WorkerCount != 2 {
		t.Fatalf("expected 2 workers, got %d", info.WorkerCount)
	}
	if info.MaxWorkers < info.WorkerCount {
		t.Fatalf("max workers must be >= current: %+v", info)
	}
}
