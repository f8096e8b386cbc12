package metaheuristics_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"k8s.io/klog/v2/ktesting"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
	mh "github.com/mihai-snyk/optimization-core/pkg/optimization/metaheuristics"
)

// lineProblem minimizes (x-7)^2 over the integers starting from 0.
var lineProblem = mh.Problem[int]{
	Initial:   func(*rand.Rand) (int, error) { return 0, nil },
	Objective: func(x int) (float64, error) { return float64((x - 7) * (x - 7)), nil },
}

// stepMoves offers x-1 and x+1, in that order, and records every solution it
// is asked to expand. sign names the signature of each move.
func stepMoves(visited *[]int, sign func(from, to int) string) mh.Neighborhood[int] {
	return func(x int, _ *rand.Rand) ([]mh.Move[int], error) {
		*visited = append(*visited, x)
		return []mh.Move[int]{
			{Solution: x - 1, Signature: sign(x, x-1)},
			{Solution: x + 1, Signature: sign(x, x+1)},
		}, nil
	}
}

func byDestination(_, to int) string { return strconv.Itoa(to) }

func byDirection(from, to int) string {
	if to > from {
		return "up"
	}
	return "down"
}

func TestTabuSearchTenureForbidsRevisits(t *testing.T) {
	tests := []struct {
		name   string
		tenure int
		want   []int
	}{
		// Without memory the search oscillates around the optimum.
		{"no tenure", 0, []int{0, 1, 2, 3, 4, 5, 6, 7, 6, 7}},
		// With memory it is pushed past the optimum instead of going back.
		{"tenure 3", 3, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ctx := ktesting.NewTestContext(t)
			cfg := mh.TabuConfig{MaxIterations: 10, Tenure: tt.tenure, Aspiration: true}
			ts, err := mh.NewTabuSearch[int](cfg, nil)
			require.NoError(t, err)

			var visited []int
			res, err := ts.Solve(ctx, lineProblem, stepMoves(&visited, byDestination))
			require.NoError(t, err)
			assert.Equal(t, tt.want, visited)
			assert.Equal(t, 7, res.Best)
			assert.Zero(t, res.BestObjective)
			assert.Equal(t, 10, res.Iterations)
			// One initial evaluation plus two moves per iteration.
			assert.Equal(t, 21, res.Evaluations)
		})
	}
}

func TestTabuSearchAspiration(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	cfg := mh.TabuConfig{MaxIterations: 10, Tenure: 5, Aspiration: true}

	// Taking an "up" move makes every "up" move tabu, but each one still
	// beats the best solution, so aspiration admits it.
	ts, err := mh.NewTabuSearch[int](cfg, nil)
	require.NoError(t, err)
	var visited []int
	res, err := ts.Solve(ctx, lineProblem, stepMoves(&visited, byDirection))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, visited[:8])
	assert.Zero(t, res.BestObjective)

	// Without aspiration the search has to step back down, and once both
	// directions are tabu it falls back to the best move overall.
	cfg.Aspiration = false
	ts, err = mh.NewTabuSearch[int](cfg, nil)
	require.NoError(t, err)
	visited = nil
	_, err = ts.Solve(ctx, lineProblem, stepMoves(&visited, byDirection))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1}, visited[:4])
}

func TestTabuSearchRestartsAfterStagnation(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	initials := 0
	p := mh.Problem[int]{
		Initial: func(*rand.Rand) (int, error) {
			initials++
			return 0, nil
		},
		Objective: func(x int) (float64, error) { return float64(x), nil },
	}
	worse := func(x int, _ *rand.Rand) ([]mh.Move[int], error) {
		return []mh.Move[int]{{Solution: x + 1, Signature: "up"}}, nil
	}

	ts, err := mh.NewTabuSearch[int](mh.TabuConfig{MaxIterations: 10, Tenure: 3, StagnationLimit: 2}, nil)
	require.NoError(t, err)
	res, err := ts.Solve(ctx, p, worse)
	require.NoError(t, err)

	// Restarts after iterations 1, 3, 5, 7 and 9.
	assert.Equal(t, 6, initials)
	assert.Zero(t, res.BestObjective)
	for _, s := range res.History {
		assert.LessOrEqual(t, s.Current, 2.0)
	}
}

func TestTabuSearchStopsWithoutMoves(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	ts, err := mh.NewTabuSearch[int](mh.DefaultTabuConfig(), nil)
	require.NoError(t, err)
	none := func(int, *rand.Rand) ([]mh.Move[int], error) { return nil, nil }

	res, err := ts.Solve(ctx, lineProblem, none)
	require.NoError(t, err)
	assert.Zero(t, res.Iterations)
	assert.Equal(t, 0, res.Best)
	assert.Equal(t, 49.0, res.BestObjective)
}

func TestTabuSearchErrors(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	ts, err := mh.NewTabuSearch[int](mh.DefaultTabuConfig(), nil)
	require.NoError(t, err)
	var visited []int

	_, err = ts.Solve(ctx, failAfter(lineProblem, 5), stepMoves(&visited, byDestination))
	assert.ErrorIs(t, err, errObjective)

	_, err = ts.Solve(ctx, lineProblem, func(int, *rand.Rand) ([]mh.Move[int], error) { return nil, errObjective })
	assert.ErrorIs(t, err, errObjective)

	_, err = ts.Solve(ctx, mh.Problem[int]{}, nil)
	assert.ErrorIs(t, err, framework.ErrConfiguration)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ts.Solve(cancelled, lineProblem, stepMoves(&visited, byDestination))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = mh.NewTabuSearch[int](mh.TabuConfig{MaxIterations: 0, Tenure: -1}, nil)
	assert.ErrorIs(t, err, framework.ErrConfiguration)
}
