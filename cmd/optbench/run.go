package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"k8s.io/utils/ptr"

	"github.com/mihai-snyk/optimization-core/apis/optimization/v1alpha1"
	"github.com/mihai-snyk/optimization-core/pkg/optimization/algorithms"
	"github.com/mihai-snyk/optimization-core/pkg/optimization/benchmarks"
	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
	"github.com/mihai-snyk/optimization-core/pkg/optimization/util"
)

// referenceSamples is the size of the sampled true front used for IGD.
const referenceSamples = 500

// hvReference bounds the hypervolume of two-objective benchmark fronts,
// which lie inside the unit square.
var hvReference = []float64{1.1, 1.1}

// countingProblem counts calls that reach the benchmark itself.
type countingProblem struct {
	framework.Problem
	calls atomic.Int64
}

func (p *countingProblem) Evaluate(x []float64) (framework.ObjectiveSpacePoint, error) {
	p.calls.Add(1)
	return p.Problem.Evaluate(x)
}

type summary struct {
	Problem     string
	Algorithm   string
	FrontSize   int
	Evaluations int64
	Elapsed     time.Duration
	// IGD and Hypervolume are NaN when they do not apply.
	IGD         float64
	Hypervolume float64
	Memoized    bool
	CacheHits   uint64
	PlotPath    string
}

func (s *summary) print(w io.Writer) {
	fmt.Fprintf(w, "%s on %s: %d front solutions, %s evaluations in %s\n", s.Algorithm, s.Problem,
		s.FrontSize, humanize.Comma(s.Evaluations), s.Elapsed.Round(time.Millisecond))
	if !math.IsNaN(s.IGD) {
		fmt.Fprintf(w, "  IGD:         %s\n", humanize.FtoaWithDigits(s.IGD, 6))
	}
	if !math.IsNaN(s.Hypervolume) {
		fmt.Fprintf(w, "  hypervolume: %s\n", humanize.FtoaWithDigits(s.Hypervolume, 6))
	}
	if s.Memoized {
		fmt.Fprintf(w, "  cache hits:  %s\n", humanize.Comma(int64(s.CacheHits)))
	}
	if s.PlotPath != "" {
		fmt.Fprintf(w, "  plot:        %s\n", s.PlotPath)
	}
}

func newProblem(spec v1alpha1.ProblemSpec) framework.Problem {
	if spec.Name == v1alpha1.ProblemDTLZ2 {
		return benchmarks.NewDTLZ2(*spec.Variables, *spec.Objectives)
	}
	return benchmarks.NewZDT1(*spec.Variables)
}

func nsga2Config(spec *v1alpha1.BenchmarkRunSpec, numObjectives int) algorithms.NSGA2Config {
	cfg := algorithms.DefaultNSGA2Config()
	if n := spec.NSGA2; n != nil {
		cfg.PopulationSize = ptr.Deref(n.PopulationSize, cfg.PopulationSize)
		cfg.Generations = ptr.Deref(n.Generations, cfg.Generations)
		cfg.CrossoverProbability = ptr.Deref(n.CrossoverProbability, cfg.CrossoverProbability)
		cfg.CrossoverIndex = ptr.Deref(n.CrossoverIndex, cfg.CrossoverIndex)
		cfg.MutationIndex = ptr.Deref(n.MutationIndex, cfg.MutationIndex)
	}
	cfg.Parallelism = ptr.Deref(spec.Parallelism, cfg.Parallelism)
	if numObjectives == 2 {
		cfg.ReferencePoint = hvReference
	}
	return cfg
}

func moeadConfig(spec *v1alpha1.BenchmarkRunSpec) algorithms.MOEADConfig {
	cfg := algorithms.DefaultMOEADConfig()
	if m := spec.MOEAD; m != nil {
		cfg.Divisions = ptr.Deref(m.Divisions, cfg.Divisions)
		cfg.NeighborhoodSize = ptr.Deref(m.NeighborhoodSize, cfg.NeighborhoodSize)
		cfg.Generations = ptr.Deref(m.Generations, cfg.Generations)
		cfg.Theta = ptr.Deref(m.Theta, cfg.Theta)
		if m.Scalarization != "" {
			cfg.Scalarization = algorithms.Scalarization(m.Scalarization)
		}
	}
	cfg.Parallelism = ptr.Deref(spec.Parallelism, cfg.Parallelism)
	return cfg
}

// solve runs the selected algorithm and returns its non-dominated front.
func solve(ctx context.Context, spec *v1alpha1.BenchmarkRunSpec, problem framework.Problem) ([]framework.Individual, error) {
	rng := framework.NewRand(ptr.Deref(spec.Seed, 0))
	switch spec.Algorithm {
	case v1alpha1.AlgorithmMOEAD:
		solver, err := algorithms.NewMOEAD(moeadConfig(spec), problem, rng)
		if err != nil {
			return nil, err
		}
		res, err := solver.Run(ctx)
		if err != nil {
			return nil, err
		}
		return res.Front, nil
	case v1alpha1.AlgorithmParetoSweep:
		divisions := v1alpha1.DefaultSweepDivs
		if spec.Sweep != nil {
			divisions = ptr.Deref(spec.Sweep.Divisions, divisions)
		}
		return algorithms.ParetoSweep(ctx, problem, &algorithms.GonumSolver{}, divisions, ptr.Deref(spec.Parallelism, 1))
	default:
		solver, err := algorithms.NewNSGAII(nsga2Config(spec, problem.NumObjectives()), problem, rng)
		if err != nil {
			return nil, err
		}
		res, err := solver.Run(ctx)
		if err != nil {
			return nil, err
		}
		return res.Front, nil
	}
}

// runBenchmark executes run and writes its plot.
func runBenchmark(ctx context.Context, logger logr.Logger, run *v1alpha1.BenchmarkRun) (*summary, error) {
	spec := &run.Spec
	counted := &countingProblem{Problem: newProblem(spec.Problem)}
	problem := framework.Problem(counted)
	var memo *framework.MemoizedProblem
	if ptr.Deref(spec.Memoize, false) {
		memo = framework.NewMemoizedProblem(counted, 0)
		problem = memo
	}

	logger.Info("Running benchmark", "problem", counted.Name(), "algorithm", spec.Algorithm,
		"variables", len(counted.Bounds()), "objectives", counted.NumObjectives())
	start := time.Now()
	front, err := solve(ctx, spec, problem)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", spec.Algorithm, counted.Name(), err)
	}

	points := make([]framework.ObjectiveSpacePoint, len(front))
	for i, ind := range front {
		points[i] = ind.Objectives
	}
	s := &summary{
		Problem:     counted.Name(),
		Algorithm:   string(spec.Algorithm),
		FrontSize:   len(front),
		Evaluations: counted.calls.Load(),
		Elapsed:     time.Since(start),
		IGD:         math.NaN(),
		Hypervolume: math.NaN(),
		Memoized:    memo != nil,
	}
	if memo != nil {
		s.CacheHits, _ = memo.Stats()
	}
	if provider, ok := counted.Problem.(framework.ParetoFrontProvider); ok {
		s.IGD = algorithms.IGD(points, provider.TrueParetoFront(referenceSamples))
	}
	if counted.NumObjectives() == 2 {
		s.Hypervolume = algorithms.Hypervolume2D(points, hvReference)

		if path := spec.Output.PlotPath; path != "-" {
			if path == "" {
				path = util.FrontFileName(counted.Problem, string(spec.Algorithm))
			}
			if err := util.PlotFront(points, counted.Problem, string(spec.Algorithm), path); err != nil {
				return nil, fmt.Errorf("plotting front: %w", err)
			}
			s.PlotPath = path
		}
	}
	logger.Info("Benchmark finished", "frontSize", s.FrontSize, "evaluations", s.Evaluations,
		"igd", s.IGD, "hypervolume", s.Hypervolume, "elapsed", s.Elapsed)
	return s, nil
}
