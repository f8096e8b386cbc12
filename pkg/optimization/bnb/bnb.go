package bnb

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// Solver runs best-first branch-and-bound with an injected relaxation.
type Solver struct {
	Config     Config
	Relaxation RelaxationSolver
}

// New validates cfg and returns a Solver.
func New(cfg Config, relaxation RelaxationSolver) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if relaxation == nil {
		return nil, framework.NewConfigurationError(field.ErrorList{
			field.Required(field.NewPath("relaxation"), "a relaxation solver is required"),
		})
	}
	return &Solver{Config: cfg, Relaxation: relaxation}, nil
}

// Solve searches for the integer-feasible minimum of p. Nodes are explored in
// order of their bound, ties broken by creation order. When ctx is cancelled
// the best solution so far is returned with the context error.
func (s *Solver) Solve(ctx context.Context, p *Problem) (*Result, error) {
	if p == nil {
		return nil, framework.NewConfigurationError(field.ErrorList{field.Required(field.NewPath("problem"), "")})
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting branch-and-bound", "variables", len(p.Bounds), "integers", len(p.Integers),
		"branching", s.Config.Branching, "maxNodes", s.Config.MaxNodes)

	res := &Result{Objective: math.Inf(1)}
	open := &openList{{
		id:     0,
		parent: -1,
		bound:  math.Inf(-1),
		bounds: framework.CloneBounds(p.Bounds),
	}}
	nextID := 1

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if s.Config.MaxNodes > 0 && res.NodesExplored >= s.Config.MaxNodes {
			logger.V(4).Info("Node budget exhausted", "explored", res.NodesExplored, "open", open.Len(), "found", res.Found)
			return res, nil
		}

		n := heap.Pop(open).(*node)
		rec := NodeRecord{ID: n.id, Parent: n.parent, Depth: n.depth, Bound: n.bound, Relaxation: math.NaN()}
		if s.dominated(n.bound, res) {
			rec.Status = NodePruned
			res.NodesPruned++
			res.Trace = append(res.Trace, rec)
			continue
		}

		relax, err := s.Relaxation.Solve(ctx, p, n.bounds)
		if err != nil {
			return nil, fmt.Errorf("relaxation of node %d: %w", n.id, err)
		}
		res.NodesExplored++
		if !relax.Feasible {
			rec.Status = NodeInfeasible
			res.NodesPruned++
			res.Trace = append(res.Trace, rec)
			continue
		}
		rec.Relaxation = relax.Objective
		if s.dominated(relax.Objective, res) {
			rec.Status = NodePruned
			res.NodesPruned++
			res.Trace = append(res.Trace, rec)
			continue
		}

		branchOn := s.branchVariable(relax.X, p.Integers)
		if branchOn < 0 {
			x, obj, err := s.snap(p, relax)
			if err != nil {
				return nil, fmt.Errorf("evaluating integral point of node %d: %w", n.id, err)
			}
			rec.Status = NodeIntegral
			if obj < res.Objective {
				rec.Status = NodeIncumbent
				res.X, res.Objective, res.Found = x, obj, true
				logger.V(5).Info("New incumbent", "node", n.id, "objective", obj, "depth", n.depth)
			}
			res.Trace = append(res.Trace, rec)
			continue
		}

		v := relax.X[branchOn]
		for _, child := range [2]framework.Bounds{
			{L: n.bounds[branchOn].L, H: math.Floor(v)},
			{L: math.Ceil(v), H: n.bounds[branchOn].H},
		} {
			parent := n.bounds[branchOn]
			if child.L > child.H || (child.L <= parent.L && child.H >= parent.H) {
				continue
			}
			bounds := framework.CloneBounds(n.bounds)
			bounds[branchOn] = child
			heap.Push(open, &node{
				id:     nextID,
				parent: n.id,
				depth:  n.depth + 1,
				bound:  relax.Objective,
				bounds: bounds,
			})
			nextID++
		}
		rec.Status = NodeBranched
		res.Trace = append(res.Trace, rec)
	}

	res.Optimal = true
	logger.V(4).Info("Branch-and-bound finished", "found", res.Found, "objective", res.Objective,
		"explored", res.NodesExplored, "pruned", res.NodesPruned)
	return res, nil
}

// dominated reports whether a node with the given bound cannot improve the
// incumbent by more than the gap tolerance.
func (s *Solver) dominated(bound float64, res *Result) bool {
	return res.Found && bound >= res.Objective-s.Config.GapTolerance
}

// branchVariable returns the index of the variable to branch on, or -1 when
// every integer variable is integral within tolerance.
func (s *Solver) branchVariable(x []float64, integers []int) int {
	best, bestScore := -1, -1.0
	for _, idx := range integers {
		frac := x[idx] - math.Floor(x[idx])
		score := math.Min(frac, 1-frac)
		if score <= s.Config.IntegerTolerance {
			continue
		}
		if s.Config.Branching == FirstFractional {
			return idx
		}
		if score > bestScore {
			best, bestScore = idx, score
		}
	}
	return best
}

// snap rounds the integer components of an integral relaxation and
// re-evaluates the objective when one is available.
func (s *Solver) snap(p *Problem, relax Relaxation) ([]float64, float64, error) {
	x := append([]float64(nil), relax.X...)
	for _, idx := range p.Integers {
		x[idx] = math.Round(x[idx])
	}
	if p.Objective == nil {
		return x, relax.Objective, nil
	}
	obj, err := p.Objective(x)
	if err != nil {
		return nil, 0, err
	}
	return x, obj, nil
}
