// Package framework holds the contracts shared by every solver in the
// optimization core: decision-vector bounds, objective and constraint
// callbacks, the multi-objective Problem, population members and the Pareto
// utilities (dominance, non-dominated sorting, crowding distance).
package framework

import "fmt"

// Objective is a single-objective function to minimize. It must be
// deterministic for a given input; a non-nil error aborts the run and is
// returned to the caller unchanged.
type Objective func(x []float64) (float64, error)

// Constraint is an inequality constraint g(x) <= 0.
type Constraint func(x []float64) (float64, error)

// ObjectiveFunc is a pure objective that cannot fail. Benchmarks expose their
// objectives this way.
type ObjectiveFunc func(x []float64) float64

// Objective adapts f to the fallible Objective signature.
func (f ObjectiveFunc) Objective() Objective {
	return func(x []float64) (float64, error) {
		return f(x), nil
	}
}

// ObjectiveSpacePoint represents an N-dimensional point in the objective space.
// As an example, for a problem with 2 objective functions f1 and f2, a point
// in the objective space could be [f1(x'), f2(x')], for the input of x'.
type ObjectiveSpacePoint []float64

// Problem describes the contract a specific multi-objective problem needs to implement.
// All objectives are minimized.
type Problem interface {
	Name() string

	// Bounds returns one closed interval per decision variable.
	Bounds() []Bounds
	NumObjectives() int

	// Evaluate maps a decision vector to its objective vector. Implementations
	// must not retain or modify x.
	Evaluate(x []float64) (ObjectiveSpacePoint, error)
}

// ParetoFrontProvider is implemented by problems with a known Pareto front.
// It's optional due to the difficulty of finding the true front in some
// types of problems.
type ParetoFrontProvider interface {
	TrueParetoFront(numPoints int) []ObjectiveSpacePoint
}

// Individual represents a solution in the population
type Individual struct {
	Variables  []float64
	Objectives ObjectiveSpacePoint

	// Rank is the index of the non-dominated front the individual belongs to.
	Rank int
	// Distance is the crowding distance within that front.
	Distance float64
}

// Clone returns a deep copy of the individual.
func (ind Individual) Clone() Individual {
	return Individual{
		Variables:  append([]float64(nil), ind.Variables...),
		Objectives: append(ObjectiveSpacePoint(nil), ind.Objectives...),
		Rank:       ind.Rank,
		Distance:   ind.Distance,
	}
}

// FuncProblem builds a Problem out of plain objective functions.
type FuncProblem struct {
	ProblemName string
	VarBounds   []Bounds
	Funcs       []ObjectiveFunc
}

var _ Problem = &FuncProblem{}

func (p *FuncProblem) Name() string {
	return p.ProblemName
}

func (p *FuncProblem) Bounds() []Bounds {
	return p.VarBounds
}

func (p *FuncProblem) NumObjectives() int {
	return len(p.Funcs)
}

func (p *FuncProblem) Evaluate(x []float64) (ObjectiveSpacePoint, error) {
	if len(x) != len(p.VarBounds) {
		return nil, fmt.Errorf("%s: expected %d variables, got %d", p.ProblemName, len(p.VarBounds), len(x))
	}
	res := make(ObjectiveSpacePoint, len(p.Funcs))
	for i, f := range p.Funcs {
		res[i] = f(x)
	}
	return res, nil
}
