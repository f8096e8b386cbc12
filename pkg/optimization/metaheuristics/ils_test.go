package metaheuristics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"k8s.io/klog/v2/ktesting"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/benchmarks"
	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
	mh "github.com/mihai-snyk/optimization-core/pkg/optimization/metaheuristics"
)

// patternSearch is a compass search that halves its step down to 1e-6.
func patternSearch(f func([]float64) float64, bounds []framework.Bounds) mh.LocalSearch[[]float64] {
	return func(x []float64) ([]float64, error) {
		y := append([]float64(nil), x...)
		fy := f(y)
		for step := 0.25; step > 1e-6; step /= 2 {
			for improved := true; improved; {
				improved = false
				for i := range y {
					for _, d := range []float64{-step, step} {
						z := append([]float64(nil), y...)
						z[i] += d
						framework.Clamp(z, bounds)
						if fz := f(z); fz < fy {
							y, fy, improved = z, fz, true
						}
					}
				}
			}
		}
		return y, nil
	}
}

func TestILSRastrigin(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	bounds := benchmarks.UniformBounds(2, -5.12, 5.12)
	p := mh.Problem[[]float64]{
		Initial: func(rng *rand.Rand) ([]float64, error) {
			return framework.RandomVector(bounds, rng), nil
		},
		Objective: func(x []float64) (float64, error) { return benchmarks.Rastrigin(x), nil },
	}

	ils, err := mh.NewILS[[]float64](mh.ILSConfig{MaxIterations: 300, Acceptance: mh.AcceptBetter}, framework.NewRand(5))
	require.NoError(t, err)
	res, err := ils.Solve(ctx, p, benchmarks.GaussianStep(bounds, 0.1), patternSearch(benchmarks.Rastrigin, bounds))
	require.NoError(t, err)

	assert.Less(t, res.BestObjective, 0.01)
	assertBestNonIncreasing(t, res.History)
	for i := 1; i < len(res.History); i++ {
		assert.LessOrEqual(t, res.History[i].Current, res.History[i-1].Current)
	}
}

// counterProblem starts at 0 and scores a solution by its value; every
// perturbation makes it worse by one.
var (
	counterProblem = mh.Problem[float64]{
		Initial:   func(*rand.Rand) (float64, error) { return 0, nil },
		Objective: func(x float64) (float64, error) { return x, nil },
	}
	increment = func(x float64, _ *rand.Rand) (float64, error) { return x + 1, nil }
	identity  = func(x float64) (float64, error) { return x, nil }
)

func TestILSAcceptance(t *testing.T) {
	tests := []struct {
		name        string
		acceptance  mh.Acceptance
		temperature float64
		check       func(t *testing.T, history []mh.Snapshot)
	}{
		{
			name:       "better never moves to a worse optimum",
			acceptance: mh.AcceptBetter,
			check: func(t *testing.T, history []mh.Snapshot) {
				for _, s := range history {
					assert.Zero(t, s.Current)
				}
			},
		},
		{
			name:       "always follows every perturbation",
			acceptance: mh.AcceptAlways,
			check: func(t *testing.T, history []mh.Snapshot) {
				for i, s := range history {
					assert.Equal(t, float64(i+1), s.Current)
				}
			},
		},
		{
			name:        "metropolis at low temperature",
			acceptance:  mh.AcceptMetropolis,
			temperature: 1e-9,
			check: func(t *testing.T, history []mh.Snapshot) {
				assert.Zero(t, history[len(history)-1].Current)
			},
		},
		{
			name:        "metropolis at high temperature",
			acceptance:  mh.AcceptMetropolis,
			temperature: 1e6,
			check: func(t *testing.T, history []mh.Snapshot) {
				assert.Greater(t, history[len(history)-1].Current, 90.0)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ctx := ktesting.NewTestContext(t)
			cfg := mh.ILSConfig{MaxIterations: 100, Acceptance: tt.acceptance, Temperature: tt.temperature}
			ils, err := mh.NewILS[float64](cfg, nil)
			require.NoError(t, err)

			res, err := ils.Solve(ctx, counterProblem, increment, identity)
			require.NoError(t, err)
			require.Len(t, res.History, 100)
			tt.check(t, res.History)
			assert.Zero(t, res.BestObjective)
			assert.Equal(t, 101, res.Evaluations)
		})
	}
}

func TestILSErrors(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	ils, err := mh.NewILS[float64](mh.DefaultILSConfig(), nil)
	require.NoError(t, err)

	_, err = ils.Solve(ctx, failAfter(counterProblem, 4), increment, identity)
	assert.ErrorIs(t, err, errObjective)

	_, err = ils.Solve(ctx, counterProblem, increment, nil)
	assert.ErrorIs(t, err, framework.ErrConfiguration)

	_, err = mh.NewILS[float64](mh.ILSConfig{MaxIterations: 1, Acceptance: mh.AcceptMetropolis}, nil)
	assert.ErrorIs(t, err, framework.ErrConfiguration)
	_, err = mh.NewILS[float64](mh.ILSConfig{MaxIterations: 1, Acceptance: "Sometimes"}, nil)
	assert.ErrorIs(t, err, framework.ErrConfiguration)
}
