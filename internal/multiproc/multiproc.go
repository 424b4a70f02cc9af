// Package multiproc fans internal analysis work out across a pool of
// helper goroutines and fans results back in: parallel metric aggregation,
// map-reduce, and chunked statistics for the auto-config controller (and
// anything else in this module that needs bounded, non-task-table
// parallelism). It is a generalization of the teacher's
// internal/concurrency.WorkerPool.Map/SubmitBatchWait pair, built directly
// on golang.org/x/sync/errgroup instead of hand-rolled channel collection.
package multiproc

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Helpers returns the helper-pool size used when a caller does not specify
// one: hardware concurrency, per spec.md §4.5/§5.
func Helpers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// ChunkSize implements the spec's chunking heuristic: below
// threads*10 items, split evenly across threads; otherwise clamp
// total/threads to [100, 10000].
func ChunkSize(total, threads int) int {
	if threads <= 0 {
		threads = Helpers()
	}
	if total < threads*10 {
		if threads == 0 {
			return total
		}
		c := total / threads
		if c < 1 {
			c = 1
		}
		return c
	}
	c := total / threads
	if c < 1 {
		c = 1
	}
	if c < 100 {
		c = 100
	}
	if c > 10000 {
		c = 10000
	}
	return c
}

// ExecuteParallel runs every closure concurrently, bounded to Helpers()
// in flight. On any error the whole operation fails; per spec.md §4.5 a
// worker exception fails the operation and the failure is logged by the
// caller (multiproc itself stays logging-free and simply returns the
// error, since it has no host-facing logger configured).
func ExecuteParallel(ctx context.Context, closures []func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Helpers())
	for _, fn := range closures {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}

// ProcessParallel applies f to chunks of items concurrently and returns the
// per-chunk results in the original order. chunkSize <= 0 selects the
// heuristic above.
func ProcessParallel[T any, R any](ctx context.Context, items []T, chunkSize int, f func(ctx context.Context, chunk []T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if chunkSize <= 0 {
		chunkSize = ChunkSize(len(items), Helpers())
	}

	type chunk struct {
		idx   int
		items []T
	}
	var chunks []chunk
	for start, idx := 0, 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, chunk{idx: idx, items: items[start:end]})
		idx++
	}

	results := make([]R, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Helpers())
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			r, err := f(gctx, c.items)
			if err != nil {
				return err
			}
			results[c.idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MapReduce maps f over items concurrently, then folds the mapped values
// through reducer starting from init, in original item order (the fold
// itself is sequential, since reducer's associativity is not guaranteed).
func MapReduce[T any, M any, R any](ctx context.Context, items []T, mapper func(ctx context.Context, item T) (M, error), reducer func(acc R, m M) R, init R) (R, error) {
	mapped := make([]M, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Helpers())
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			m, err := mapper(gctx, item)
			if err != nil {
				return err
			}
			mapped[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var zero R
		return zero, err
	}

	acc := init
	for _, m := range mapped {
		acc = reducer(acc, m)
	}
	return acc, nil
}

// Statistics is the neutral-on-failure result of StatisticsParallel.
type Statistics struct {
	Min      float64
	Max      float64
	Mean     float64
	Median   float64
	Variance float64
	StdDev   float64
	Count    int
}

// StatisticsParallel computes summary statistics over numbers, chunking the
// reduction across Helpers() goroutines. An empty input returns a neutral,
// zero-valued Statistics rather than an error.
func StatisticsParallel(ctx context.Context, numbers []float64) (Statistics, error) {
	if len(numbers) == 0 {
		return Statistics{}, nil
	}

	type partial struct {
		sum, sumSq, min, max float64
		count                int
	}

	chunkSize := ChunkSize(len(numbers), Helpers())
	partials, err := ProcessParallel(ctx, numbers, chunkSize, func(_ context.Context, chunk []float64) (partial, error) {
		p := partial{min: chunk[0], max: chunk[0]}
		for _, v := range chunk {
			p.sum += v
			p.sumSq += v * v
			p.count++
			if v < p.min {
				p.min = v
			}
			if v > p.max {
				p.max = v
			}
		}
		return p, nil
	})
	if err != nil {
		return Statistics{}, err
	}

	var total partial
	total.min = partials[0].min
	total.max = partials[0].max
	for _, p := range partials {
		total.sum += p.sum
		total.sumSq += p.sumSq
		total.count += p.count
		if p.min < total.min {
			total.min = p.min
		}
		if p.max > total.max {
			total.max = p.max
		}
	}

	mean := total.sum / float64(total.count)
	variance := total.sumSq/float64(total.count) - mean*mean
	if variance < 0 {
		variance = 0 // guard against floating point underflow
	}

	sorted := append([]float64(nil), numbers...)
	sort.Float64s(sorted)
	median := medianOf(sorted)

	return Statistics{
		Min:      total.min,
		Max:      total.max,
		Mean:     mean,
		Median:   median,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Count:    total.count,
	}, nil
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
