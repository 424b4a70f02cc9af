package multiproc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSizeSmallInputSplitsEvenly(t *testing.T) {
	c := ChunkSize(20, 4)
	assert.Equal(t, 5, c)
}

func TestChunkSizeLargeInputClamped(t *testing.T) {
	assert.GreaterOrEqual(t, ChunkSize(2_000_000, 4), 100)
	assert.LessOrEqual(t, ChunkSize(2_000_000, 4), 10000)
}

func TestProcessParallelPreservesOrder(t *testing.T) {
	items := make([]int, 500)
	for i := range items {
		items[i] = i
	}
	results, err := ProcessParallel(context.Background(), items, 17, func(_ context.Context, chunk []int) (int, error) {
		sum := 0
		for _, v := range chunk {
			sum += v
		}
		return sum, nil
	})
	require.NoError(t, err)

	total := 0
	for _, r := range results {
		total += r
	}
	assert.Equal(t, 500*499/2, total)
}

func TestProcessParallelPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ProcessParallel(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, chunk []int) (int, error) {
		if chunk[0] == 2 {
			return 0, boom
		}
		return chunk[0], nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestMapReduceSumOfSquares(t *testing.T) {
	items := []int{1, 2, 3, 4}
	sum, err := MapReduce(context.Background(), items,
		func(_ context.Context, v int) (int, error) { return v * v, nil },
		func(acc int, m int) int { return acc + m },
		0,
	)
	require.NoError(t, err)
	assert.Equal(t, 1+4+9+16, sum)
}

func TestExecuteParallelRunsAllAndPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	ran := make([]bool, 3)
	closures := []func(ctx context.Context) error{
		func(ctx context.Context) error { ran[0] = true; return nil },
		func(ctx context.Context) error { ran[1] = true; return boom },
		func(ctx context.Context) error { ran[2] = true; return nil },
	}
	err := ExecuteParallel(context.Background(), closures)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran[0])
	assert.True(t, ran[1])
	assert.True(t, ran[2])
}

func TestStatisticsParallelEmptyIsNeutral(t *testing.T) {
	stats, err := StatisticsParallel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Statistics{}, stats)
}

func TestStatisticsParallelComputesMoments(t *testing.T) {
	numbers := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	stats, err := StatisticsParallel(context.Background(), numbers)
	require.NoError(t, err)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 10.0, stats.Max)
	assert.InDelta(t, 5.5, stats.Mean, 1e-9)
	assert.InDelta(t, 5.5, stats.Median, 1e-9)
	assert.Equal(t, 10, stats.Count)
	assert.Greater(t, stats.StdDev, 0.0)
}
