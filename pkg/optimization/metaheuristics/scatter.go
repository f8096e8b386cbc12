package metaheuristics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// ScatterProblem extends Problem with the operators scatter search needs.
// Problem.Initial is the diversification generator.
type ScatterProblem[S any] struct {
	Problem[S]
	// Combine produces offspring from two reference solutions.
	Combine func(a, b S, rng *rand.Rand) ([]S, error)
	// Improve is optional.
	Improve LocalSearch[S]
	// Distance measures how different two solutions are. Solutions closer
	// than ScatterConfig.Tolerance count as duplicates.
	Distance func(a, b S) float64
}

// ScatterConfig configures scatter search.
type ScatterConfig struct {
	// RefSetSize is the size of the reference set: the better half is
	// chosen by quality, the rest by diversity.
	RefSetSize int
	// InitialPopulation is the number of diverse solutions generated to
	// seed the reference set.
	InitialPopulation int
	MaxIterations     int
	Tolerance         float64
}

func DefaultScatterConfig() ScatterConfig {
	return ScatterConfig{
		RefSetSize:        10,
		InitialPopulation: 100,
		MaxIterations:     50,
		Tolerance:         1e-9,
	}
}

func (c *ScatterConfig) Validate() error {
	var errs field.ErrorList
	if c.RefSetSize < 2 {
		errs = append(errs, field.Invalid(field.NewPath("refSetSize"), c.RefSetSize, "must be at least 2"))
	}
	if c.InitialPopulation < c.RefSetSize {
		errs = append(errs, field.Invalid(field.NewPath("initialPopulation"), c.InitialPopulation, "must be at least refSetSize"))
	}
	errs = positive(errs, "maxIterations", c.MaxIterations)
	if !(c.Tolerance >= 0) {
		errs = append(errs, field.Invalid(field.NewPath("tolerance"), c.Tolerance, "must be non-negative"))
	}
	return framework.NewConfigurationError(errs)
}

// ScatterSearch maintains a small reference set of good and diverse
// solutions and combines all of its pairs every iteration.
type ScatterSearch[S any] struct {
	Config ScatterConfig
	rng    *rand.Rand
}

// NewScatterSearch validates cfg. A nil rng uses the default seed.
func NewScatterSearch[S any](cfg ScatterConfig, rng *rand.Rand) (*ScatterSearch[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ScatterSearch[S]{Config: cfg, rng: newRand(rng)}, nil
}

type scored[S any] struct {
	s   S
	obj float64
	// parent marks members of the previous reference set.
	parent bool
}

func (ss *ScatterSearch[S]) improve(p *ScatterProblem[S], ev *evaluator[S], s S) (scored[S], error) {
	var err error
	if p.Improve != nil {
		if s, err = p.Improve(s); err != nil {
			return scored[S]{}, err
		}
	}
	obj, err := ev.eval(s)
	if err != nil {
		return scored[S]{}, err
	}
	return scored[S]{s: s, obj: obj}, nil
}

// unique reports whether s is farther than the tolerance from every member
// of set.
func (ss *ScatterSearch[S]) unique(p *ScatterProblem[S], set []scored[S], s S) bool {
	for _, m := range set {
		if p.Distance(m.s, s) <= ss.Config.Tolerance {
			return false
		}
	}
	return true
}

// byQuality returns up to n members of pool in ascending objective order,
// skipping duplicates of members already taken. Earlier pool entries win
// ties.
func (ss *ScatterSearch[S]) byQuality(p *ScatterProblem[S], pool []scored[S], n int) []scored[S] {
	ordered := append([]scored[S](nil), pool...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].obj < ordered[j].obj
	})
	set := make([]scored[S], 0, n)
	for _, c := range ordered {
		if len(set) == n {
			break
		}
		if ss.unique(p, set, c.s) {
			set = append(set, c)
		}
	}
	return set
}

// initialRefSet takes the better half by quality and fills the rest with the
// pool members farthest from the set chosen so far.
func (ss *ScatterSearch[S]) initialRefSet(p *ScatterProblem[S], pool []scored[S]) []scored[S] {
	size := ss.Config.RefSetSize
	set := ss.byQuality(p, pool, (size+1)/2)
	for len(set) < size {
		bestIdx, bestDist := -1, -1.0
		for i, c := range pool {
			d := math.Inf(1)
			for _, m := range set {
				d = math.Min(d, p.Distance(m.s, c.s))
			}
			if d > ss.Config.Tolerance && d > bestDist {
				bestIdx, bestDist = i, d
			}
		}
		if bestIdx < 0 {
			break
		}
		set = append(set, pool[bestIdx])
	}
	sort.SliceStable(set, func(i, j int) bool {
		return set[i].obj < set[j].obj
	})
	return set
}

// Solve builds the reference set from InitialPopulation diverse solutions,
// then combines and re-selects until the set stops changing or MaxIterations
// is reached.
func (ss *ScatterSearch[S]) Solve(ctx context.Context, p ScatterProblem[S]) (*Result[S], error) {
	errs := p.validate()
	errs = required(errs, "combine", p.Combine == nil)
	errs = required(errs, "distance", p.Distance == nil)
	if err := framework.NewConfigurationError(errs); err != nil {
		return nil, err
	}
	cfg := ss.Config
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting scatter search", "refSetSize", cfg.RefSetSize, "maxIterations", cfg.MaxIterations)

	ev := &evaluator[S]{objective: p.Objective}
	pool := make([]scored[S], 0, cfg.InitialPopulation)
	for i := 0; i < cfg.InitialPopulation; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := p.Initial(ss.rng)
		if err != nil {
			return nil, fmt.Errorf("diversification: %w", err)
		}
		c, err := ss.improve(&p, ev, s)
		if err != nil {
			return nil, err
		}
		pool = append(pool, c)
	}
	refSet := ss.initialRefSet(&p, pool)

	var best tracker[S]
	best.offer(refSet[0].s, refSet[0].obj)
	var history []Snapshot

	iter := 0
	for ; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return best.result(iter, ev.count, history), err
		}

		candidates := make([]scored[S], 0, len(refSet)*len(refSet))
		for i := range refSet {
			refSet[i].parent = true
			candidates = append(candidates, refSet[i])
		}
		for i := 0; i < len(refSet); i++ {
			for j := i + 1; j < len(refSet); j++ {
				children, err := p.Combine(refSet[i].s, refSet[j].s, ss.rng)
				if err != nil {
					return nil, fmt.Errorf("iteration %d: %w", iter, err)
				}
				for _, child := range children {
					c, err := ss.improve(&p, ev, child)
					if err != nil {
						return nil, err
					}
					candidates = append(candidates, c)
				}
			}
		}

		refSet = ss.byQuality(&p, candidates, cfg.RefSetSize)
		best.offer(refSet[0].s, refSet[0].obj)
		history = append(history, Snapshot{Iteration: iter, Current: refSet[len(refSet)-1].obj, Best: best.bestObj})

		changed := false
		for _, m := range refSet {
			changed = changed || !m.parent
		}
		if !changed {
			iter++
			break
		}
	}

	logger.V(4).Info("Scatter search finished", "best", best.bestObj, "iterations", iter, "evaluations", ev.count)
	return best.result(iter, ev.count, history), nil
}
