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

// Acceptance decides whether ILS moves to a new local optimum.
type Acceptance string

const (
	// AcceptBetter moves only on strict improvement.
	AcceptBetter Acceptance = "Better"
	// AcceptAlways always moves (random walk over local optima).
	AcceptAlways Acceptance = "Always"
	// AcceptMetropolis moves with the simulated annealing criterion at a
	// fixed Temperature.
	AcceptMetropolis Acceptance = "Metropolis"
)

// ILSConfig configures iterated local search.
type ILSConfig struct {
	MaxIterations int
	Acceptance    Acceptance
	// Temperature is used by AcceptMetropolis only.
	Temperature float64
}

func DefaultILSConfig() ILSConfig {
	return ILSConfig{
		MaxIterations: 1000,
		Acceptance:    AcceptBetter,
		Temperature:   1,
	}
}

func (c *ILSConfig) Validate() error {
	errs := positive(nil, "maxIterations", c.MaxIterations)
	switch c.Acceptance {
	case AcceptBetter, AcceptAlways:
	case AcceptMetropolis:
		if !(c.Temperature > 0) || math.IsInf(c.Temperature, 0) {
			errs = append(errs, field.Invalid(field.NewPath("temperature"), c.Temperature, "must be finite and positive"))
		}
	default:
		errs = append(errs, field.NotSupported(field.NewPath("acceptance"), c.Acceptance,
			[]string{string(AcceptBetter), string(AcceptAlways), string(AcceptMetropolis)}))
	}
	return framework.NewConfigurationError(errs)
}

// ILS is iterated local search.
type ILS[S any] struct {
	Config ILSConfig
	rng    *rand.Rand
}

// NewILS validates cfg. A nil rng uses the default seed.
func NewILS[S any](cfg ILSConfig, rng *rand.Rand) (*ILS[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ILS[S]{Config: cfg, rng: newRand(rng)}, nil
}

// Solve repeatedly perturbs the current local optimum, re-optimizes it with
// localSearch and applies the acceptance rule.
func (ils *ILS[S]) Solve(ctx context.Context, p Problem[S], perturb Operator[S], localSearch LocalSearch[S]) (*Result[S], error) {
	errs := required(p.validate(), "perturb", perturb == nil)
	errs = required(errs, "localSearch", localSearch == nil)
	if err := framework.NewConfigurationError(errs); err != nil {
		return nil, err
	}
	cfg := ils.Config
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting ILS", "acceptance", cfg.Acceptance, "maxIterations", cfg.MaxIterations)

	ev := &evaluator[S]{objective: p.Objective}
	cur, err := p.Initial(ils.rng)
	if err != nil {
		return nil, fmt.Errorf("initial solution: %w", err)
	}
	if cur, err = localSearch(cur); err != nil {
		return nil, err
	}
	curObj, err := ev.eval(cur)
	if err != nil {
		return nil, err
	}
	var best tracker[S]
	best.offer(cur, curObj)

	var history []Snapshot
	iter := 0
	for ; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return best.result(iter, ev.count, history), err
		}

		cand, err := perturb(cur, ils.rng)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}
		if cand, err = localSearch(cand); err != nil {
			return nil, err
		}
		candObj, err := ev.eval(cand)
		if err != nil {
			return nil, err
		}

		var move bool
		switch cfg.Acceptance {
		case AcceptAlways:
			move = true
		case AcceptMetropolis:
			move = accept(candObj-curObj, cfg.Temperature, ils.rng)
		default:
			move = candObj < curObj
		}
		if move {
			cur, curObj = cand, candObj
		}
		best.offer(cand, candObj)
		history = append(history, Snapshot{Iteration: iter, Current: curObj, Best: best.bestObj, Temperature: cfg.Temperature})
	}

	logger.V(4).Info("ILS finished", "best", best.bestObj, "evaluations", ev.count)
	return best.result(iter, ev.count, history), nil
}
