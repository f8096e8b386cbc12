package algorithms

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// SingleObjectiveProblem is one scalarized subproblem handed to a
// SingleObjectiveSolver.
type SingleObjectiveProblem struct {
	Objective   framework.Objective
	Constraints []framework.Constraint
	Bounds      []framework.Bounds
	// Start is the initial point. Solvers may ignore it.
	Start []float64
}

// SingleObjectiveSolver minimizes a constrained scalar problem. Errors
// returned by the objective or constraints must be returned unchanged.
type SingleObjectiveSolver interface {
	Minimize(ctx context.Context, p SingleObjectiveProblem) ([]float64, error)
}

func validateSweep(problem framework.Problem, solver SingleObjectiveSolver) field.ErrorList {
	errs := validateProblem(problem)
	if solver == nil {
		errs = append(errs, field.Required(field.NewPath("solver"), ""))
	}
	return errs
}

func midpoint(bounds []framework.Bounds) []float64 {
	x := make([]float64, len(bounds))
	for i, b := range bounds {
		x[i] = b.L + b.Width()/2
	}
	return x
}

// component returns an Objective for the k-th objective of problem.
func component(problem framework.Problem, k int) framework.Objective {
	return func(x []float64) (float64, error) {
		f, err := problem.Evaluate(x)
		if err != nil {
			return 0, err
		}
		return f[k], nil
	}
}

func solveAndEvaluate(ctx context.Context, problem framework.Problem, solver SingleObjectiveSolver, sp SingleObjectiveProblem) (framework.Individual, error) {
	if sp.Start == nil {
		sp.Start = midpoint(sp.Bounds)
	}
	x, err := solver.Minimize(ctx, sp)
	if err != nil {
		return framework.Individual{}, err
	}
	framework.Clamp(x, sp.Bounds)
	f, err := problem.Evaluate(x)
	if err != nil {
		return framework.Individual{}, err
	}
	return framework.Individual{Variables: x, Objectives: f}, nil
}

// WeightedSumSolve minimizes sum_i w_i f_i(x) with solver. A nil start uses
// the centre of the bounds.
func WeightedSumSolve(ctx context.Context, problem framework.Problem, weights []float64, solver SingleObjectiveSolver, start []float64) (framework.Individual, error) {
	errs := validateSweep(problem, solver)
	if problem != nil && len(weights) != problem.NumObjectives() {
		errs = append(errs, field.Invalid(field.NewPath("weights"), weights, fmt.Sprintf("expected %d weights", problem.NumObjectives())))
	}
	if err := framework.NewConfigurationError(errs); err != nil {
		return framework.Individual{}, err
	}

	w := append([]float64(nil), weights...)
	sp := SingleObjectiveProblem{
		Objective: func(x []float64) (float64, error) {
			f, err := problem.Evaluate(x)
			if err != nil {
				return 0, err
			}
			return floats.Dot(w, f), nil
		},
		Bounds: framework.CloneBounds(problem.Bounds()),
		Start:  start,
	}
	return solveAndEvaluate(ctx, problem, solver, sp)
}

// EpsilonConstraintSolve minimizes objective primary subject to
// f_k(x) <= epsilons[k] for every other k. epsilons[primary] is ignored.
func EpsilonConstraintSolve(ctx context.Context, problem framework.Problem, primary int, epsilons []float64, solver SingleObjectiveSolver, start []float64) (framework.Individual, error) {
	errs := validateSweep(problem, solver)
	if problem != nil {
		m := problem.NumObjectives()
		if primary < 0 || primary >= m {
			errs = append(errs, field.Invalid(field.NewPath("primary"), primary, fmt.Sprintf("must be in [0, %d)", m)))
		}
		if len(epsilons) != m {
			errs = append(errs, field.Invalid(field.NewPath("epsilons"), epsilons, fmt.Sprintf("expected %d values", m)))
		}
	}
	if err := framework.NewConfigurationError(errs); err != nil {
		return framework.Individual{}, err
	}

	sp := SingleObjectiveProblem{
		Objective: component(problem, primary),
		Bounds:    framework.CloneBounds(problem.Bounds()),
		Start:     start,
	}
	for k, eps := range epsilons {
		if k == primary {
			continue
		}
		f := component(problem, k)
		sp.Constraints = append(sp.Constraints, func(x []float64) (float64, error) {
			v, err := f(x)
			return v - eps, err
		})
	}
	return solveAndEvaluate(ctx, problem, solver, sp)
}

// ParetoSweep runs one weighted-sum solve per simplex lattice weight with the
// given divisions and returns the non-dominated results in weight order.
// Solves are independent and run on up to parallelism goroutines.
func ParetoSweep(ctx context.Context, problem framework.Problem, solver SingleObjectiveSolver, divisions, parallelism int) ([]framework.Individual, error) {
	errs := validateSweep(problem, solver)
	if divisions < 1 {
		errs = append(errs, field.Invalid(field.NewPath("divisions"), divisions, "must be positive"))
	}
	if err := framework.NewConfigurationError(errs); err != nil {
		return nil, err
	}

	logger := klog.FromContext(ctx)
	weights := SimplexLatticeWeights(problem.NumObjectives(), divisions)
	logger.V(4).Info("Starting Pareto sweep", "problem", problem.Name(), "weights", len(weights))

	results := make([]framework.Individual, len(weights))
	err := framework.ForEach(ctx, len(weights), parallelism, func(ctx context.Context, i int) error {
		ind, err := WeightedSumSolve(ctx, problem, weights[i], solver, nil)
		if err != nil {
			return fmt.Errorf("weights %v: %w", weights[i], err)
		}
		results[i] = ind
		return nil
	})
	if err != nil {
		return nil, err
	}

	var front []framework.Individual
	for _, idx := range framework.NonDominatedFilter(objectives(results)) {
		front = append(front, results[idx])
	}
	logger.V(4).Info("Pareto sweep finished", "solves", len(results), "frontSize", len(front))
	return front, nil
}
