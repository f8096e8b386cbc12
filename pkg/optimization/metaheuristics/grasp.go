package metaheuristics

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// GRASPProblem describes a solution that is built one element at a time.
type GRASPProblem[S, E any] struct {
	// Empty returns the starting partial solution.
	Empty func() S
	// Candidates lists the elements that can extend s. Construction stops
	// when it is empty.
	Candidates func(s S) []E
	// GreedyCost is the incremental cost of adding e to s; lower is greedier.
	// An infinite or NaN cost marks e as infeasible for s.
	GreedyCost func(s S, e E) (float64, error)
	Add        func(s S, e E) S
	// LocalSearch is optional.
	LocalSearch LocalSearch[S]
	Objective   func(s S) (float64, error)
}

func (p *GRASPProblem[S, E]) validate() field.ErrorList {
	var errs field.ErrorList
	errs = required(errs, "empty", p.Empty == nil)
	errs = required(errs, "candidates", p.Candidates == nil)
	errs = required(errs, "greedyCost", p.GreedyCost == nil)
	errs = required(errs, "add", p.Add == nil)
	errs = required(errs, "objective", p.Objective == nil)
	return errs
}

// GRASPConfig configures GRASP.
type GRASPConfig struct {
	MaxIterations int
	// Alpha sets the restricted candidate list threshold
	// cmin + Alpha*(cmax-cmin): 0 is pure greedy, 1 is uniform random.
	Alpha float64
}

func DefaultGRASPConfig() GRASPConfig {
	return GRASPConfig{MaxIterations: 100, Alpha: 0.3}
}

func (c *GRASPConfig) Validate() error {
	errs := positive(nil, "maxIterations", c.MaxIterations)
	if !(c.Alpha >= 0 && c.Alpha <= 1) {
		errs = append(errs, field.Invalid(field.NewPath("alpha"), c.Alpha, "must be within [0, 1]"))
	}
	return framework.NewConfigurationError(errs)
}

// GRASP is the greedy randomized adaptive search procedure. Iterations are
// independent restarts.
type GRASP[S, E any] struct {
	Config GRASPConfig
	rng    *rand.Rand
}

// NewGRASP validates cfg. A nil rng uses the default seed.
func NewGRASP[S, E any](cfg GRASPConfig, rng *rand.Rand) (*GRASP[S, E], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &GRASP[S, E]{Config: cfg, rng: newRand(rng)}, nil
}

// construct builds one solution by repeatedly adding a uniformly chosen
// member of the restricted candidate list. Only candidates with a finite cost
// are eligible; construction stops when none are left.
func (g *GRASP[S, E]) construct(p *GRASPProblem[S, E]) (S, error) {
	s := p.Empty()
	var costs []float64
	var rcl []int
	for {
		candidates := p.Candidates(s)
		if len(candidates) == 0 {
			return s, nil
		}
		costs = costs[:0]
		cmin, cmax := math.Inf(1), math.Inf(-1)
		for _, e := range candidates {
			c, err := p.GreedyCost(s, e)
			if err != nil {
				return s, err
			}
			costs = append(costs, c)
			if math.IsInf(c, 0) || math.IsNaN(c) {
				continue
			}
			cmin, cmax = math.Min(cmin, c), math.Max(cmax, c)
		}
		if cmin > cmax {
			return s, nil
		}
		threshold := cmin + g.Config.Alpha*(cmax-cmin)
		rcl = rcl[:0]
		for i, c := range costs {
			if c <= threshold && !math.IsInf(c, 0) {
				rcl = append(rcl, i)
			}
		}
		s = p.Add(s, candidates[rcl[g.rng.Intn(len(rcl))]])
	}
}

// Solve runs MaxIterations construct-and-improve restarts and keeps the best.
func (g *GRASP[S, E]) Solve(ctx context.Context, p GRASPProblem[S, E]) (*Result[S], error) {
	if err := framework.NewConfigurationError(p.validate()); err != nil {
		return nil, err
	}
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting GRASP", "alpha", g.Config.Alpha, "maxIterations", g.Config.MaxIterations)

	ev := &evaluator[S]{objective: p.Objective}
	var best tracker[S]
	var history []Snapshot
	iter := 0
	for ; iter < g.Config.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			if !best.set {
				return nil, err
			}
			return best.result(iter, ev.count, history), err
		}

		s, err := g.construct(&p)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}
		if p.LocalSearch != nil {
			if s, err = p.LocalSearch(s); err != nil {
				return nil, err
			}
		}
		obj, err := ev.eval(s)
		if err != nil {
			return nil, err
		}
		best.offer(s, obj)
		history = append(history, Snapshot{Iteration: iter, Current: obj, Best: best.bestObj})
	}

	logger.V(4).Info("GRASP finished", "best", best.bestObj, "evaluations", ev.count)
	return best.result(iter, ev.count, history), nil
}
