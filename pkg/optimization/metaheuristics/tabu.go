package metaheuristics

import (
	"context"
	"fmt"

	"golang.org/x/exp/rand"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// Move is one neighbor together with the signature that becomes tabu when
// the move is taken.
type Move[S any] struct {
	Solution  S
	Signature string
}

// Neighborhood enumerates the moves available from a solution.
type Neighborhood[S any] func(s S, rng *rand.Rand) ([]Move[S], error)

// TabuConfig configures tabu search.
type TabuConfig struct {
	MaxIterations int
	// Tenure is the number of iterations a taken move stays tabu.
	Tenure int
	// StagnationLimit is the number of iterations without improving the
	// best solution after which the search restarts from a fresh initial
	// solution. Zero disables restarts.
	StagnationLimit int
	// Aspiration admits a tabu move that beats the best solution found.
	Aspiration bool
}

func DefaultTabuConfig() TabuConfig {
	return TabuConfig{
		MaxIterations:   1000,
		Tenure:          7,
		StagnationLimit: 100,
		Aspiration:      true,
	}
}

func (c *TabuConfig) Validate() error {
	var errs field.ErrorList
	errs = positive(errs, "maxIterations", c.MaxIterations)
	if c.Tenure < 0 {
		errs = append(errs, field.Invalid(field.NewPath("tenure"), c.Tenure, "must be non-negative"))
	}
	if c.StagnationLimit < 0 {
		errs = append(errs, field.Invalid(field.NewPath("stagnationLimit"), c.StagnationLimit, "must be non-negative"))
	}
	return framework.NewConfigurationError(errs)
}

// tabuList maps a move signature to the iteration at which it expires.
type tabuList map[string]int

// isTabu reports whether sig is still forbidden at iter, dropping the entry
// once it has expired.
func (t tabuList) isTabu(sig string, iter int) bool {
	expiry, ok := t[sig]
	if !ok {
		return false
	}
	if iter >= expiry {
		delete(t, sig)
		return false
	}
	return true
}

// TabuSearch is a best-improvement tabu search.
type TabuSearch[S any] struct {
	Config TabuConfig
	rng    *rand.Rand
}

// NewTabuSearch validates cfg. A nil rng uses the default seed.
func NewTabuSearch[S any](cfg TabuConfig, rng *rand.Rand) (*TabuSearch[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TabuSearch[S]{Config: cfg, rng: newRand(rng)}, nil
}

// Solve moves to the best admissible neighbor every iteration. A move is
// admissible when it is not tabu or, with aspiration, when it beats the best
// solution found. If no move is admissible the best move overall is taken.
// The search stops early when a solution has no neighbors.
func (ts *TabuSearch[S]) Solve(ctx context.Context, p Problem[S], neighbors Neighborhood[S]) (*Result[S], error) {
	errs := required(p.validate(), "neighbors", neighbors == nil)
	if err := framework.NewConfigurationError(errs); err != nil {
		return nil, err
	}
	cfg := ts.Config
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting tabu search", "tenure", cfg.Tenure, "maxIterations", cfg.MaxIterations)

	ev := &evaluator[S]{objective: p.Objective}
	cur, err := p.Initial(ts.rng)
	if err != nil {
		return nil, fmt.Errorf("initial solution: %w", err)
	}
	curObj, err := ev.eval(cur)
	if err != nil {
		return nil, err
	}
	var best tracker[S]
	best.offer(cur, curObj)

	tabu := tabuList{}
	stagnation, restarts := 0, 0
	var history []Snapshot

	iter := 0
	for ; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return best.result(iter, ev.count, history), err
		}

		moves, err := neighbors(cur, ts.rng)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}
		if len(moves) == 0 {
			break
		}

		chosen, fallback := -1, -1
		chosenObj, fallbackObj := 0.0, 0.0
		for i, mv := range moves {
			obj, err := ev.eval(mv.Solution)
			if err != nil {
				return nil, err
			}
			if fallback < 0 || obj < fallbackObj {
				fallback, fallbackObj = i, obj
			}
			if tabu.isTabu(mv.Signature, iter) && !(cfg.Aspiration && obj < best.bestObj) {
				continue
			}
			if chosen < 0 || obj < chosenObj {
				chosen, chosenObj = i, obj
			}
		}
		if chosen < 0 {
			chosen, chosenObj = fallback, fallbackObj
		}

		cur, curObj = moves[chosen].Solution, chosenObj
		if cfg.Tenure > 0 {
			tabu[moves[chosen].Signature] = iter + 1 + cfg.Tenure
		}

		if best.offer(cur, curObj) {
			stagnation = 0
		} else {
			stagnation++
		}
		history = append(history, Snapshot{Iteration: iter, Current: curObj, Best: best.bestObj})

		if cfg.StagnationLimit > 0 && stagnation >= cfg.StagnationLimit {
			if cur, err = p.Initial(ts.rng); err != nil {
				return nil, fmt.Errorf("restart: %w", err)
			}
			if curObj, err = ev.eval(cur); err != nil {
				return nil, err
			}
			best.offer(cur, curObj)
			clear(tabu)
			stagnation = 0
			restarts++
			logger.V(5).Info("Restarting after stagnation", "iteration", iter, "best", best.bestObj)
		}
	}

	logger.V(4).Info("Tabu search finished", "best", best.bestObj, "evaluations", ev.count, "restarts", restarts)
	return best.result(iter, ev.count, history), nil
}
