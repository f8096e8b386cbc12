package bnb_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2/ktesting"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/bnb"
	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// min -5x1 - 4x2  s.t.  6x1 + 4x2 <= 24,  x1 + 2x2 <= 6,  0 <= x <= 10 integer.
// The LP optimum is (3, 1.5) at -21; the integer optimum is (4, 0) at -20.
func linearProblem(t *testing.T) (*bnb.Problem, *bnb.LinearRelaxation) {
	t.Helper()
	p, relax, err := bnb.NewLinearProblem(
		[]float64{-5, -4},
		[][]float64{{6, 4}, {1, 2}},
		[]float64{24, 6},
		[]framework.Bounds{{L: 0, H: 10}, {L: 0, H: 10}},
		[]int{0, 1},
	)
	require.NoError(t, err)
	return p, relax
}

func TestLinearRelaxation(t *testing.T) {
	p, relax := linearProblem(t)
	r, err := relax.Solve(context.Background(), p, p.Bounds)
	require.NoError(t, err)
	require.True(t, r.Feasible)
	assert.InDelta(t, -21, r.Objective, 1e-9)
	if diff := cmp.Diff([]float64{3, 1.5}, r.X, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("unexpected relaxed point (-want +got):\n%s", diff)
	}

	// Shifted lower bounds: x1 >= 4 forces x2 = 0.
	r, err = relax.Solve(context.Background(), p, []framework.Bounds{{L: 4, H: 10}, {L: 0, H: 10}})
	require.NoError(t, err)
	require.True(t, r.Feasible)
	assert.InDelta(t, -20, r.Objective, 1e-9)

	// x1 >= 5 violates 6x1 <= 24.
	r, err = relax.Solve(context.Background(), p, []framework.Bounds{{L: 5, H: 10}, {L: 0, H: 10}})
	require.NoError(t, err)
	assert.False(t, r.Feasible)
}

func TestSolveLinearProgram(t *testing.T) {
	for _, branching := range []bnb.Branching{bnb.MostInfeasible, bnb.FirstFractional} {
		t.Run(string(branching), func(t *testing.T) {
			_, ctx := ktesting.NewTestContext(t)
			p, relax := linearProblem(t)

			cfg := bnb.DefaultConfig()
			cfg.MaxNodes = 0
			cfg.Branching = branching
			solver, err := bnb.New(cfg, relax)
			require.NoError(t, err)

			res, err := solver.Solve(ctx, p)
			require.NoError(t, err)
			assert.True(t, res.Found)
			assert.True(t, res.Optimal)
			assert.InDelta(t, -20, res.Objective, 1e-9)
			assert.Equal(t, []float64{4, 0}, res.X)
			assertBoundMonotone(t, res.Trace)
		})
	}
}

// assertBoundMonotone checks that no child relaxes below its parent.
func assertBoundMonotone(t *testing.T, trace []bnb.NodeRecord) {
	t.Helper()
	relaxation := make(map[int]float64, len(trace))
	for _, rec := range trace {
		relaxation[rec.ID] = rec.Relaxation
	}
	for _, rec := range trace {
		if rec.Parent < 0 {
			assert.True(t, math.IsInf(rec.Bound, -1))
			continue
		}
		parent := relaxation[rec.Parent]
		assert.Equal(t, parent, rec.Bound, "node %d bound", rec.ID)
		if !math.IsNaN(rec.Relaxation) {
			assert.GreaterOrEqual(t, rec.Relaxation, parent-1e-9, "node %d relaxes below parent %d", rec.ID, rec.Parent)
		}
	}
}

type knapsackRelaxation struct {
	weights, values []float64
	capacity        float64
}

// Solve is the exact fractional knapsack relaxation over items whose bounds
// are not fixed, expressed as a minimization of -value.
func (k *knapsackRelaxation) Solve(_ context.Context, _ *bnb.Problem, bounds []framework.Bounds) (bnb.Relaxation, error) {
	x := make([]float64, len(k.weights))
	remaining := k.capacity
	var free []int
	for i, b := range bounds {
		switch {
		case b.L >= 1:
			x[i] = 1
			remaining -= k.weights[i]
		case b.H >= 1:
			free = append(free, i)
		}
	}
	if remaining < 0 {
		return bnb.Relaxation{}, nil
	}
	sort.SliceStable(free, func(a, b int) bool {
		return k.values[free[a]]/k.weights[free[a]] > k.values[free[b]]/k.weights[free[b]]
	})
	for _, i := range free {
		take := math.Min(1, remaining/k.weights[i])
		x[i] = take
		remaining -= take * k.weights[i]
		if remaining <= 0 {
			break
		}
	}
	obj := 0.0
	for i := range x {
		obj -= x[i] * k.values[i]
	}
	return bnb.Relaxation{Feasible: true, X: x, Objective: obj}, nil
}

func TestSolveKnapsack(t *testing.T) {
	tests := []struct {
		name     string
		capacity float64
		want     float64
		wantX    []float64
	}{
		// The root relaxation is already integral.
		{name: "capacity 5", capacity: 5, want: -7, wantX: []float64{1, 1, 0, 0}},
		// The root takes a quarter of item 2 and has to branch.
		{name: "capacity 6", capacity: 6, want: -8, wantX: []float64{1, 0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ctx := ktesting.NewTestContext(t)
			relax := &knapsackRelaxation{
				weights:  []float64{2, 3, 4, 5},
				values:   []float64{3, 4, 5, 6},
				capacity: tt.capacity,
			}
			p := &bnb.Problem{
				Bounds:   []framework.Bounds{{L: 0, H: 1}, {L: 0, H: 1}, {L: 0, H: 1}, {L: 0, H: 1}},
				Integers: []int{0, 1, 2, 3},
			}

			solver, err := bnb.New(bnb.Config{IntegerTolerance: 1e-9, Branching: bnb.MostInfeasible}, relax)
			require.NoError(t, err)
			res, err := solver.Solve(ctx, p)
			require.NoError(t, err)

			assert.True(t, res.Optimal)
			assert.InDelta(t, tt.want, res.Objective, 1e-9)
			assert.Equal(t, tt.wantX, res.X)
			assertBoundMonotone(t, res.Trace)
		})
	}
}

func TestSolveBudgetExhausted(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	p, relax := linearProblem(t)
	cfg := bnb.DefaultConfig()
	cfg.MaxNodes = 1
	solver, err := bnb.New(cfg, relax)
	require.NoError(t, err)

	res, err := solver.Solve(ctx, p)
	require.NoError(t, err)
	assert.False(t, res.Optimal)
	assert.False(t, res.Found)
	assert.Equal(t, 1, res.NodesExplored)
	require.Len(t, res.Trace, 1)
	assert.Equal(t, bnb.NodeBranched, res.Trace[0].Status)
}

func TestSolveInfeasible(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	infeasible := bnb.RelaxationFunc(func(context.Context, *bnb.Problem, []framework.Bounds) (bnb.Relaxation, error) {
		return bnb.Relaxation{}, nil
	})
	solver, err := bnb.New(bnb.DefaultConfig(), infeasible)
	require.NoError(t, err)

	res, err := solver.Solve(ctx, &bnb.Problem{Bounds: []framework.Bounds{{L: 0, H: 1}}, Integers: []int{0}})
	require.NoError(t, err)
	assert.True(t, res.Optimal)
	assert.False(t, res.Found)
	assert.Equal(t, 1, res.NodesPruned)
	assert.Equal(t, bnb.NodeInfeasible, res.Trace[0].Status)
}

func TestSolvePropagatesRelaxationError(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	errLP := errors.New("lp solver crashed")
	failing := bnb.RelaxationFunc(func(context.Context, *bnb.Problem, []framework.Bounds) (bnb.Relaxation, error) {
		return bnb.Relaxation{}, errLP
	})
	solver, err := bnb.New(bnb.DefaultConfig(), failing)
	require.NoError(t, err)
	_, err = solver.Solve(ctx, &bnb.Problem{Bounds: []framework.Bounds{{L: 0, H: 1}}})
	assert.ErrorIs(t, err, errLP)
}

func TestSolveCancelled(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	p, relax := linearProblem(t)
	solver, err := bnb.New(bnb.DefaultConfig(), relax)
	require.NoError(t, err)
	res, err := solver.Solve(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.False(t, res.Optimal)
}

func TestValidation(t *testing.T) {
	_, relax := linearProblem(t)

	_, err := bnb.New(bnb.Config{Branching: "Random"}, relax)
	assert.ErrorIs(t, err, framework.ErrConfiguration)
	_, err = bnb.New(bnb.DefaultConfig(), nil)
	assert.ErrorIs(t, err, framework.ErrConfiguration)

	solver, err := bnb.New(bnb.DefaultConfig(), relax)
	require.NoError(t, err)
	for name, p := range map[string]*bnb.Problem{
		"inverted bounds":        {Bounds: []framework.Bounds{{L: 1, H: 0}}},
		"empty bounds":           {},
		"integer out of range":   {Bounds: []framework.Bounds{{L: 0, H: 1}}, Integers: []int{1}},
		"duplicate integer":      {Bounds: []framework.Bounds{{L: 0, H: 1}}, Integers: []int{0, 0}},
		"negative integer index": {Bounds: []framework.Bounds{{L: 0, H: 1}}, Integers: []int{-1}},
	} {
		_, err := solver.Solve(context.Background(), p)
		assert.ErrorIs(t, err, framework.ErrConfiguration, name)
	}

	_, _, err = bnb.NewLinearProblem([]float64{1}, [][]float64{{1, 2}}, []float64{1, 2},
		[]framework.Bounds{{L: 0, H: math.Inf(1)}}, nil)
	require.ErrorIs(t, err, framework.ErrConfiguration)
	var cfgErr *framework.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Errs, 3)
}
