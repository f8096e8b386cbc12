// Package bnb implements best-first branch-and-bound for mixed-integer
// minimization over box-bounded variables. Relaxations are delegated to a
// RelaxationSolver; LinearRelaxation is provided for linear programs.
package bnb

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// Problem is a minimization problem with some integer-constrained variables.
// Constraints are g(x) <= 0 and are consumed by the relaxation solver only.
type Problem struct {
	// Objective, when set, is used to re-evaluate integral candidates after
	// their integer components are snapped. Without it the relaxation
	// objective is trusted.
	Objective   framework.Objective
	Constraints []framework.Constraint
	Bounds      []framework.Bounds
	// Integers lists the indices of integer-constrained variables.
	Integers []int
}

// Validate reports malformed bounds and integer indices.
func (p *Problem) Validate() error {
	errs := framework.ValidateBounds(field.NewPath("bounds"), p.Bounds)
	seen := make(map[int]bool, len(p.Integers))
	for i, idx := range p.Integers {
		path := field.NewPath("integers").Index(i)
		switch {
		case idx < 0 || idx >= len(p.Bounds):
			errs = append(errs, field.Invalid(path, idx, fmt.Sprintf("must be in [0, %d)", len(p.Bounds))))
		case seen[idx]:
			errs = append(errs, field.Duplicate(path, idx))
		}
		seen[idx] = true
	}
	return framework.NewConfigurationError(errs)
}

// Relaxation is the outcome of one relaxed solve. X and Objective are only
// meaningful when Feasible is true.
type Relaxation struct {
	Feasible  bool
	X         []float64
	Objective float64
}

// RelaxationSolver solves the continuous relaxation of p restricted to bounds.
// An infeasible relaxation is reported through Relaxation.Feasible, not as an
// error.
type RelaxationSolver interface {
	Solve(ctx context.Context, p *Problem, bounds []framework.Bounds) (Relaxation, error)
}

// RelaxationFunc adapts a function to RelaxationSolver.
type RelaxationFunc func(ctx context.Context, p *Problem, bounds []framework.Bounds) (Relaxation, error)

func (f RelaxationFunc) Solve(ctx context.Context, p *Problem, bounds []framework.Bounds) (Relaxation, error) {
	return f(ctx, p, bounds)
}

// Branching selects the fractional variable to branch on.
type Branching string

const (
	// MostInfeasible branches on the variable whose fractional part is
	// closest to 0.5.
	MostInfeasible Branching = "MostInfeasible"
	// FirstFractional branches on the first fractional variable in
	// Problem.Integers order.
	FirstFractional Branching = "FirstFractional"
)

// Config holds the search limits.
type Config struct {
	// MaxNodes caps the number of relaxations solved. Zero means no cap.
	MaxNodes int
	// IntegerTolerance is how far from an integer a value may be and still
	// count as integral.
	IntegerTolerance float64
	// GapTolerance is the minimum improvement over the incumbent a node's
	// bound must promise to be explored.
	GapTolerance float64
	Branching    Branching
}

func DefaultConfig() Config {
	return Config{
		MaxNodes:         10000,
		IntegerTolerance: 1e-6,
		GapTolerance:     1e-9,
		Branching:        MostInfeasible,
	}
}

func (c *Config) Validate() error {
	var errs field.ErrorList
	if c.MaxNodes < 0 {
		errs = append(errs, field.Invalid(field.NewPath("maxNodes"), c.MaxNodes, "must be non-negative"))
	}
	if !(c.IntegerTolerance >= 0 && c.IntegerTolerance < 0.5) {
		errs = append(errs, field.Invalid(field.NewPath("integerTolerance"), c.IntegerTolerance, "must be within [0, 0.5)"))
	}
	if !(c.GapTolerance >= 0) {
		errs = append(errs, field.Invalid(field.NewPath("gapTolerance"), c.GapTolerance, "must be non-negative"))
	}
	switch c.Branching {
	case MostInfeasible, FirstFractional:
	default:
		errs = append(errs, field.NotSupported(field.NewPath("branching"), c.Branching,
			[]string{string(MostInfeasible), string(FirstFractional)}))
	}
	return framework.NewConfigurationError(errs)
}

// NodeStatus records what happened to a node once it was popped.
type NodeStatus string

const (
	// NodeBranched nodes produced children.
	NodeBranched NodeStatus = "Branched"
	// NodePruned nodes could not beat the incumbent.
	NodePruned NodeStatus = "Pruned"
	// NodeInfeasible nodes had an infeasible relaxation.
	NodeInfeasible NodeStatus = "Infeasible"
	// NodeIncumbent nodes were integral and improved the incumbent.
	NodeIncumbent NodeStatus = "Incumbent"
	// NodeIntegral nodes were integral but did not improve the incumbent.
	NodeIntegral NodeStatus = "Integral"
)

// NodeRecord is the trace entry of one popped node.
type NodeRecord struct {
	ID     int
	Parent int
	Depth  int
	// Bound is the bound the node was queued with, its parent's relaxation
	// objective (-Inf for the root).
	Bound float64
	// Relaxation is the node's own relaxation objective, NaN if the node was
	// pruned before solving or its relaxation was infeasible.
	Relaxation float64
	Status     NodeStatus
}

// Result of a search. Optimal is true only when the open list was exhausted;
// with Found false that proves the problem infeasible.
type Result struct {
	X             []float64
	Objective     float64
	Found         bool
	Optimal       bool
	NodesExplored int
	NodesPruned   int
	Trace         []NodeRecord
}
