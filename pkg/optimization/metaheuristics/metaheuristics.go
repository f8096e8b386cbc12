// Package metaheuristics holds single-objective local-search metaheuristics
// that are generic over the solution representation: simulated annealing,
// tabu search, variable neighborhood search, iterated local search, GRASP
// and scatter search.
//
// Callbacks receive solutions by value and must not mutate them; operators
// return a new solution instead. All randomness is drawn from the generator
// passed to the constructor, so a fixed seed reproduces a run exactly.
package metaheuristics

import (
	"golang.org/x/exp/rand"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// Problem is the contract shared by every solver in this package.
type Problem[S any] struct {
	// Initial builds a starting solution. Tabu search also uses it to
	// restart after stagnation.
	Initial   func(rng *rand.Rand) (S, error)
	Objective func(s S) (float64, error)
}

func (p *Problem[S]) validate() field.ErrorList {
	var errs field.ErrorList
	if p.Initial == nil {
		errs = append(errs, field.Required(field.NewPath("initial"), ""))
	}
	if p.Objective == nil {
		errs = append(errs, field.Required(field.NewPath("objective"), ""))
	}
	return errs
}

// Operator maps a solution to a random neighbor.
type Operator[S any] func(s S, rng *rand.Rand) (S, error)

// LocalSearch improves a solution until it is locally optimal.
type LocalSearch[S any] func(s S) (S, error)

// Snapshot is one history entry. Temperature and Neighborhood are only set
// by the solvers that have them.
type Snapshot struct {
	Iteration    int
	Current      float64
	Best         float64
	Temperature  float64
	Neighborhood int
}

// Result is the outcome of a run.
type Result[S any] struct {
	Best          S
	BestObjective float64
	Iterations    int
	Evaluations   int
	History       []Snapshot
}

// evaluator wraps Problem.Objective and counts calls.
type evaluator[S any] struct {
	objective func(S) (float64, error)
	count     int
}

func (e *evaluator[S]) eval(s S) (float64, error) {
	e.count++
	return e.objective(s)
}

// tracker keeps the best solution seen.
type tracker[S any] struct {
	best    S
	bestObj float64
	set     bool
}

// offer records s if it strictly improves the best, and reports whether it did.
func (t *tracker[S]) offer(s S, obj float64) bool {
	if t.set && obj >= t.bestObj {
		return false
	}
	t.best, t.bestObj, t.set = s, obj, true
	return true
}

func (t *tracker[S]) result(iterations, evaluations int, history []Snapshot) *Result[S] {
	return &Result[S]{
		Best:          t.best,
		BestObjective: t.bestObj,
		Iterations:    iterations,
		Evaluations:   evaluations,
		History:       history,
	}
}

func required(errs field.ErrorList, name string, missing bool) field.ErrorList {
	if missing {
		errs = append(errs, field.Required(field.NewPath(name), ""))
	}
	return errs
}

func positive(errs field.ErrorList, name string, v int) field.ErrorList {
	if v < 1 {
		errs = append(errs, field.Invalid(field.NewPath(name), v, "must be positive"))
	}
	return errs
}

func newRand(rng *rand.Rand) *rand.Rand {
	return framework.RandOrDefault(rng)
}
