package framework_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

func TestValidateBounds(t *testing.T) {
	path := field.NewPath("bounds")

	assert.Empty(t, framework.ValidateBounds(path, []framework.Bounds{{L: 0, H: 1}, {L: -1, H: -1}}))
	assert.Len(t, framework.ValidateBounds(path, nil), 1)

	errs := framework.ValidateBounds(path, []framework.Bounds{{L: 2, H: 1}, {L: math.NaN(), H: 0}})
	require.Len(t, errs, 2)
	assert.Equal(t, "bounds[0]", errs[0].Field)
	assert.Equal(t, "bounds[1]", errs[1].Field)

	errs = framework.ValidateFiniteBounds(path, []framework.Bounds{{L: 0, H: math.Inf(1)}})
	assert.Len(t, errs, 1)
}

func TestConfigurationError(t *testing.T) {
	assert.NoError(t, framework.NewConfigurationError(nil))

	err := framework.NewConfigurationError(field.ErrorList{
		field.Invalid(field.NewPath("capacity"), -1, "must be non-negative"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, framework.ErrConfiguration))
	assert.Contains(t, err.Error(), "capacity")

	var cfgErr *framework.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Errs, 1)
}

func TestClampAndRandomVector(t *testing.T) {
	bounds := []framework.Bounds{{L: 0, H: 1}, {L: -2, H: 2}}
	x := []float64{1.5, -3}
	framework.Clamp(x, bounds)
	assert.Equal(t, []float64{1, -2}, x)

	rng := framework.NewRand(42)
	for i := 0; i < 100; i++ {
		v := framework.RandomVector(bounds, rng)
		for j, b := range bounds {
			assert.True(t, b.Contains(v[j]))
		}
	}
}

func TestNewRandDeterministic(t *testing.T) {
	a, b := framework.NewRand(7), framework.NewRand(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
	// Seed 0 falls back to DefaultSeed.
	assert.Equal(t, framework.NewRand(0).Uint64(), framework.NewRand(framework.DefaultSeed).Uint64())
}

type sumProblem struct {
	calls atomic.Int64
	fail  bool
}

var errEvaluation = errors.New("evaluation failed")

func (p *sumProblem) Name() string { return "sum" }
func (p *sumProblem) Bounds() []framework.Bounds { return []framework.Bounds{{L: 0, H: 10}, {L: 0, H: 10}} }
func (p *sumProblem) NumObjectives() int { return 2 }
func (p *sumProblem) Evaluate(x []float64) (framework.ObjectiveSpacePoint, error) {
	p.calls.Add(1)
	if p.fail && x[0] > 5 {
		return nil, errEvaluation
	}
	return framework.ObjectiveSpacePoint{x[0] + x[1], x[0] - x[1]}, nil
}

func TestEvaluatePopulationParallelMatchesSequential(t *testing.T) {
	rng := framework.NewRand(3)
	p := &sumProblem{}
	xs := make([][]float64, 50)
	for i := range xs {
		xs[i] = framework.RandomVector(p.Bounds(), rng)
	}

	seq, err := framework.EvaluatePopulation(context.Background(), p, xs, 1)
	require.NoError(t, err)
	par, err := framework.EvaluatePopulation(context.Background(), p, xs, 8)
	require.NoError(t, err)

	if diff := cmp.Diff(seq, par); diff != "" {
		t.Errorf("parallel evaluation differs (-seq +par):\n%s", diff)
	}
}

func TestEvaluatePopulationPropagatesError(t *testing.T) {
	p := &sumProblem{fail: true}
	xs := [][]float64{{1, 1}, {6, 1}, {2, 2}}
	for _, parallelism := range []int{1, 4} {
		_, err := framework.EvaluatePopulation(context.Background(), p, xs, parallelism)
		assert.ErrorIs(t, err, errEvaluation, "parallelism %d", parallelism)
	}
}

func TestMemoizedProblem(t *testing.T) {
	inner := &sumProblem{}
	m := framework.NewMemoizedProblem(inner, 0)

	first, err := m.Evaluate([]float64{1, 2})
	require.NoError(t, err)
	second, err := m.Evaluate([]float64{1, 2})
	require.NoError(t, err)
	_, err = m.Evaluate([]float64{2, 1})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 2, inner.calls.Load())
	hits, misses := m.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 2, misses)

	// Mutating a returned vector must not corrupt the cache.
	second[0] = 100
	third, err := m.Evaluate([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3.0, third[0])
}

func TestFuncProblem(t *testing.T) {
	p := &framework.FuncProblem{
		ProblemName: "quad",
		VarBounds:   []framework.Bounds{{L: -1, H: 1}},
		Funcs: []framework.ObjectiveFunc{
			func(x []float64) float64 { return x[0] * x[0] },
			func(x []float64) float64 { return (x[0] - 1) * (x[0] - 1) },
		},
	}
	val, err := p.Evaluate([]float64{0.5})
	require.NoError(t, err)
	assert.Equal(t, framework.ObjectiveSpacePoint{0.25, 0.25}, val)
	assert.Equal(t, 2, p.NumObjectives())

	_, err = p.Evaluate([]float64{0.5, 1})
	assert.Error(t, err)
}
