package framework

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// ForEach calls fn for every index in [0, n). With parallelism > 1 the calls
// run on a bounded goroutine pool and the first error cancels the rest;
// otherwise they run in order on the calling goroutine. fn must only write
// to state owned by its index. The first error is returned unchanged.
func ForEach(ctx context.Context, n, parallelism int, fn func(ctx context.Context, i int) error) error {
	if parallelism <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	workers := pool.New().
		WithMaxGoroutines(parallelism).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i := 0; i < n; i++ {
		workers.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i)
		})
	}
	return workers.Wait()
}

// EvaluatePopulation evaluates every decision vector in xs against p. Each
// result is written to its own slot, so the output order (and therefore any
// downstream trajectory) does not depend on scheduling.
func EvaluatePopulation(ctx context.Context, p Problem, xs [][]float64, parallelism int) ([]ObjectiveSpacePoint, error) {
	out := make([]ObjectiveSpacePoint, len(xs))
	err := ForEach(ctx, len(xs), parallelism, func(_ context.Context, i int) error {
		val, err := p.Evaluate(xs[i])
		if err != nil {
			return err
		}
		out[i] = val
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
