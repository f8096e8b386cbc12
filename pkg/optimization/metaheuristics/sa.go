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

// Schedule is the cooling schedule of simulated annealing.
type Schedule string

const (
	// Geometric multiplies the temperature by Alpha every iteration.
	Geometric Schedule = "Geometric"
	// Linear lowers the temperature by (T0-Tf)/MaxIterations every iteration.
	Linear Schedule = "Linear"
	// Adaptive cools by Alpha while the acceptance rate of the last window
	// is at or above TargetAcceptance, and by (1+Alpha)/2 otherwise.
	Adaptive Schedule = "Adaptive"
)

// SAConfig configures simulated annealing.
type SAConfig struct {
	InitialTemperature float64
	// FinalTemperature floors the temperature.
	FinalTemperature float64
	MaxIterations    int
	Schedule         Schedule
	Alpha            float64

	AdaptiveWindow   int
	TargetAcceptance float64

	// ReheatAfter is the number of iterations without improving the best
	// solution after which the search returns to the best solution and the
	// temperature is raised to at least ReheatFactor*InitialTemperature.
	// Zero disables reheating.
	ReheatAfter  int
	ReheatFactor float64
}

func DefaultSAConfig() SAConfig {
	return SAConfig{
		InitialTemperature: 100,
		FinalTemperature:   1e-3,
		MaxIterations:      10000,
		Schedule:           Geometric,
		Alpha:              0.995,
		AdaptiveWindow:     100,
		TargetAcceptance:   0.44,
		ReheatFactor:       0.5,
	}
}

func (c *SAConfig) Validate() error {
	var errs field.ErrorList
	if !(c.InitialTemperature >= 0) || math.IsInf(c.InitialTemperature, 0) {
		errs = append(errs, field.Invalid(field.NewPath("initialTemperature"), c.InitialTemperature, "must be finite and non-negative"))
	}
	if !(c.FinalTemperature >= 0 && c.FinalTemperature <= c.InitialTemperature) {
		errs = append(errs, field.Invalid(field.NewPath("finalTemperature"), c.FinalTemperature, "must be within [0, initialTemperature]"))
	}
	errs = positive(errs, "maxIterations", c.MaxIterations)
	switch c.Schedule {
	case Geometric, Adaptive:
		if !(c.Alpha > 0 && c.Alpha < 1) {
			errs = append(errs, field.Invalid(field.NewPath("alpha"), c.Alpha, "must be within (0, 1)"))
		}
	case Linear:
	default:
		errs = append(errs, field.NotSupported(field.NewPath("schedule"), c.Schedule,
			[]string{string(Geometric), string(Linear), string(Adaptive)}))
	}
	if c.Schedule == Adaptive {
		errs = positive(errs, "adaptiveWindow", c.AdaptiveWindow)
		if !(c.TargetAcceptance >= 0 && c.TargetAcceptance <= 1) {
			errs = append(errs, field.Invalid(field.NewPath("targetAcceptance"), c.TargetAcceptance, "must be within [0, 1]"))
		}
	}
	if c.ReheatAfter < 0 {
		errs = append(errs, field.Invalid(field.NewPath("reheatAfter"), c.ReheatAfter, "must be non-negative"))
	}
	if !(c.ReheatFactor >= 0 && c.ReheatFactor <= 1) {
		errs = append(errs, field.Invalid(field.NewPath("reheatFactor"), c.ReheatFactor, "must be within [0, 1]"))
	}
	return framework.NewConfigurationError(errs)
}

// SimulatedAnnealing minimizes with Metropolis acceptance.
type SimulatedAnnealing[S any] struct {
	Config SAConfig
	rng    *rand.Rand
}

// NewSimulatedAnnealing validates cfg. A nil rng uses the default seed.
func NewSimulatedAnnealing[S any](cfg SAConfig, rng *rand.Rand) (*SimulatedAnnealing[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SimulatedAnnealing[S]{Config: cfg, rng: newRand(rng)}, nil
}

// accept applies the Metropolis criterion. At zero temperature only strict
// improvements pass.
func accept(delta, temperature float64, rng *rand.Rand) bool {
	if delta < 0 {
		return true
	}
	if temperature <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(-delta/temperature)
}

// Solve runs MaxIterations annealing steps from p.Initial.
func (sa *SimulatedAnnealing[S]) Solve(ctx context.Context, p Problem[S], neighbor Operator[S]) (*Result[S], error) {
	errs := required(p.validate(), "neighbor", neighbor == nil)
	if err := framework.NewConfigurationError(errs); err != nil {
		return nil, err
	}
	cfg := sa.Config
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting simulated annealing", "schedule", cfg.Schedule, "initialTemperature", cfg.InitialTemperature,
		"maxIterations", cfg.MaxIterations)

	ev := &evaluator[S]{objective: p.Objective}
	cur, err := p.Initial(sa.rng)
	if err != nil {
		return nil, fmt.Errorf("initial solution: %w", err)
	}
	curObj, err := ev.eval(cur)
	if err != nil {
		return nil, err
	}
	var best tracker[S]
	best.offer(cur, curObj)

	temperature := cfg.InitialTemperature
	factor := cfg.Alpha
	step := (cfg.InitialTemperature - cfg.FinalTemperature) / float64(cfg.MaxIterations)
	accepted, sinceImprovement, reheats := 0, 0, 0
	history := make([]Snapshot, 0, cfg.MaxIterations)

	iter := 0
	for ; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return best.result(iter, ev.count, history), err
		}

		cand, err := neighbor(cur, sa.rng)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}
		candObj, err := ev.eval(cand)
		if err != nil {
			return nil, err
		}

		if accept(candObj-curObj, temperature, sa.rng) {
			cur, curObj = cand, candObj
			accepted++
		}
		if best.offer(cur, curObj) {
			sinceImprovement = 0
		} else {
			sinceImprovement++
		}
		history = append(history, Snapshot{Iteration: iter, Current: curObj, Best: best.bestObj, Temperature: temperature})

		switch cfg.Schedule {
		case Linear:
			temperature -= step
		case Adaptive:
			if (iter+1)%cfg.AdaptiveWindow == 0 {
				rate := float64(accepted) / float64(cfg.AdaptiveWindow)
				factor = cfg.Alpha
				if rate < cfg.TargetAcceptance {
					factor = (1 + cfg.Alpha) / 2
				}
				accepted = 0
			}
			temperature *= factor
		default:
			temperature *= cfg.Alpha
		}
		temperature = math.Max(temperature, cfg.FinalTemperature)

		if cfg.ReheatAfter > 0 && sinceImprovement >= cfg.ReheatAfter {
			cur, curObj = best.best, best.bestObj
			temperature = math.Max(temperature, cfg.ReheatFactor*cfg.InitialTemperature)
			sinceImprovement = 0
			reheats++
			logger.V(5).Info("Reheating", "iteration", iter, "temperature", temperature, "best", best.bestObj)
		}
	}

	logger.V(4).Info("Simulated annealing finished", "best", best.bestObj, "evaluations", ev.count, "reheats", reheats)
	return best.result(iter, ev.count, history), nil
}
