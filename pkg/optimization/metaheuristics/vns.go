package metaheuristics

import (
	"context"
	"fmt"

	"golang.org/x/exp/rand"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// VNSConfig configures variable neighborhood search.
type VNSConfig struct {
	// MaxIterations is the total number of shake and local-search rounds.
	MaxIterations int
}

func DefaultVNSConfig() VNSConfig {
	return VNSConfig{MaxIterations: 1000}
}

func (c *VNSConfig) Validate() error {
	return framework.NewConfigurationError(positive(nil, "maxIterations", c.MaxIterations))
}

// VNS is basic variable neighborhood search.
type VNS[S any] struct {
	Config VNSConfig
	rng    *rand.Rand
}

// NewVNS validates cfg. A nil rng uses the default seed.
func NewVNS[S any](cfg VNSConfig, rng *rand.Rand) (*VNS[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &VNS[S]{Config: cfg, rng: newRand(rng)}, nil
}

// Solve shakes the incumbent in neighborhood k, applies localSearch (which may
// be nil) and moves on improvement, returning to k = 0. Otherwise it advances
// to the next neighborhood, wrapping around after the last one. shakes should
// be ordered by increasing perturbation strength.
func (v *VNS[S]) Solve(ctx context.Context, p Problem[S], shakes []Operator[S], localSearch LocalSearch[S]) (*Result[S], error) {
	errs := required(p.validate(), "shakes", len(shakes) == 0)
	for i, shake := range shakes {
		errs = required(errs, fmt.Sprintf("shakes[%d]", i), shake == nil)
	}
	if err := framework.NewConfigurationError(errs); err != nil {
		return nil, err
	}
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting VNS", "neighborhoods", len(shakes), "maxIterations", v.Config.MaxIterations)

	ev := &evaluator[S]{objective: p.Objective}
	cur, err := p.Initial(v.rng)
	if err != nil {
		return nil, fmt.Errorf("initial solution: %w", err)
	}
	if localSearch != nil {
		if cur, err = localSearch(cur); err != nil {
			return nil, err
		}
	}
	curObj, err := ev.eval(cur)
	if err != nil {
		return nil, err
	}
	var best tracker[S]
	best.offer(cur, curObj)

	var history []Snapshot
	k := 0
	iter := 0
	for ; iter < v.Config.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return best.result(iter, ev.count, history), err
		}

		cand, err := shakes[k](cur, v.rng)
		if err != nil {
			return nil, fmt.Errorf("iteration %d, neighborhood %d: %w", iter, k, err)
		}
		if localSearch != nil {
			if cand, err = localSearch(cand); err != nil {
				return nil, err
			}
		}
		candObj, err := ev.eval(cand)
		if err != nil {
			return nil, err
		}

		improved := candObj < curObj
		if improved {
			cur, curObj = cand, candObj
			best.offer(cur, curObj)
		}
		history = append(history, Snapshot{Iteration: iter, Current: curObj, Best: best.bestObj, Neighborhood: k})
		if improved {
			k = 0
		} else {
			k = (k + 1) % len(shakes)
		}
	}

	logger.V(4).Info("VNS finished", "best", best.bestObj, "evaluations", ev.count)
	return best.result(iter, ev.count, history), nil
}
