package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2/ktesting"
	"k8s.io/utils/ptr"

	"github.com/mihai-snyk/optimization-core/apis/optimization/v1alpha1"
)

func newRun(spec v1alpha1.BenchmarkRunSpec) *v1alpha1.BenchmarkRun {
	run := &v1alpha1.BenchmarkRun{
		TypeMeta: metav1.TypeMeta{APIVersion: v1alpha1.GroupVersion, Kind: v1alpha1.Kind},
		Spec:     spec,
	}
	v1alpha1.SetDefaults_BenchmarkRun(run)
	return run
}

func TestRunBenchmarkNSGA2(t *testing.T) {
	logger, ctx := ktesting.NewTestContext(t)
	plot := filepath.Join(t.TempDir(), "front.html")
	run := newRun(v1alpha1.BenchmarkRunSpec{
		Problem:   v1alpha1.ProblemSpec{Name: v1alpha1.ProblemZDT1, Variables: ptr.To(5)},
		Algorithm: v1alpha1.AlgorithmNSGA2,
		Seed:      ptr.To(uint64(3)),
		Memoize:   ptr.To(true),
		NSGA2:     &v1alpha1.NSGA2Spec{PopulationSize: ptr.To(20), Generations: ptr.To(20)},
		Output:    v1alpha1.OutputSpec{PlotPath: plot},
	})
	require.Empty(t, v1alpha1.ValidateBenchmarkRun(run))

	s, err := runBenchmark(ctx, logger, run)
	require.NoError(t, err)
	assert.Equal(t, "ZDT1", s.Problem)
	assert.Positive(t, s.FrontSize)
	assert.Positive(t, s.Evaluations)
	assert.False(t, math.IsNaN(s.IGD))
	assert.Positive(t, s.Hypervolume)
	assert.True(t, s.Memoized)
	// Unchanged offspring hit the cache instead of the benchmark.
	assert.Positive(t, s.CacheHits)
	assert.LessOrEqual(t, s.Evaluations+int64(s.CacheHits), int64(20*21))

	assert.Equal(t, plot, s.PlotPath)
	_, err = os.Stat(plot)
	assert.NoError(t, err)

	var out bytes.Buffer
	s.print(&out)
	assert.Contains(t, out.String(), "NSGA-II on ZDT1")
	assert.Contains(t, out.String(), "hypervolume")
	assert.Contains(t, out.String(), "cache hits")
}

func TestRunBenchmarkMOEADThreeObjectives(t *testing.T) {
	logger, ctx := ktesting.NewTestContext(t)
	run := newRun(v1alpha1.BenchmarkRunSpec{
		Problem:   v1alpha1.ProblemSpec{Name: v1alpha1.ProblemDTLZ2},
		Algorithm: v1alpha1.AlgorithmMOEAD,
		MOEAD:     &v1alpha1.MOEADSpec{Divisions: ptr.To(4), NeighborhoodSize: ptr.To(5), Generations: ptr.To(10)},
	})

	s, err := runBenchmark(ctx, logger, run)
	require.NoError(t, err)
	assert.Positive(t, s.FrontSize)
	assert.LessOrEqual(t, s.FrontSize, 15)
	assert.False(t, math.IsNaN(s.IGD))
	// Three objectives are neither plotted nor measured by hypervolume.
	assert.True(t, math.IsNaN(s.Hypervolume))
	assert.Empty(t, s.PlotPath)
}

func TestRunBenchmarkParetoSweep(t *testing.T) {
	logger, ctx := ktesting.NewTestContext(t)
	run := newRun(v1alpha1.BenchmarkRunSpec{
		Problem:     v1alpha1.ProblemSpec{Name: v1alpha1.ProblemZDT1, Variables: ptr.To(2)},
		Algorithm:   v1alpha1.AlgorithmParetoSweep,
		Parallelism: ptr.To(2),
		Sweep:       &v1alpha1.SweepSpec{Divisions: ptr.To(4)},
		Output:      v1alpha1.OutputSpec{PlotPath: "-"},
	})

	s, err := runBenchmark(ctx, logger, run)
	require.NoError(t, err)
	assert.Positive(t, s.FrontSize)
	assert.LessOrEqual(t, s.FrontSize, 5)
	assert.Empty(t, s.PlotPath)
	assert.False(t, s.Memoized)
}

func TestRunBenchmarkCancelled(t *testing.T) {
	logger, ctx := ktesting.NewTestContext(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	run := newRun(v1alpha1.BenchmarkRunSpec{
		Problem:   v1alpha1.ProblemSpec{Name: v1alpha1.ProblemZDT1},
		Algorithm: v1alpha1.AlgorithmNSGA2,
		Output:    v1alpha1.OutputSpec{PlotPath: "-"},
	})

	_, err := runBenchmark(ctx, logger, run)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsBenchmarkRun(t *testing.T) {
	opts := &options{problem: "DTLZ2", algorithm: "MOEA/D", objectives: 2, parallelism: 3, seed: 9}
	run, err := opts.benchmarkRun()
	require.NoError(t, err)
	assert.Equal(t, 11, *run.Spec.Problem.Variables)
	assert.Equal(t, 2, *run.Spec.Problem.Objectives)
	assert.Equal(t, 99, *run.Spec.MOEAD.Divisions)
	assert.Equal(t, uint64(9), *run.Spec.Seed)
	assert.Equal(t, 3, *run.Spec.Parallelism)

	opts.algorithm = "SPEA2"
	_, err = opts.benchmarkRun()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apiVersion: optimization.mihai-snyk.io/v1alpha1
kind: BenchmarkRun
spec:
  problem:
    name: ZDT1
    variables: 3
  algorithm: ParetoSweep
`), 0o600))
	opts = &options{config: path, algorithm: "ignored"}
	run, err = opts.benchmarkRun()
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.AlgorithmParetoSweep, run.Spec.Algorithm)
	assert.Equal(t, 20, *run.Spec.Sweep.Divisions)
}
