package algorithms

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/optimize"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// DefaultPenalty weighs squared constraint and bound violations in
// GonumSolver.
const DefaultPenalty = 1e6

// GonumSolver is a SingleObjectiveSolver backed by gonum's optimize package.
// Constraints and bounds are folded into the objective as a quadratic
// penalty, so results are approximate near active constraints. The
// objective is safe for methods that evaluate concurrently (Settings.Concurrent
// > 1). A GonumSolver may be shared across goroutines as long as Settings
// carries no Converger, which gonum initializes per call.
type GonumSolver struct {
	// NewMethod builds the local method for one solve. Nil means Nelder-Mead.
	NewMethod func() optimize.Method
	Settings  *optimize.Settings
	Penalty   float64
}

var _ SingleObjectiveSolver = &GonumSolver{}

func (s *GonumSolver) Minimize(ctx context.Context, p SingleObjectiveProblem) ([]float64, error) {
	penalty := s.Penalty
	if penalty == 0 {
		penalty = DefaultPenalty
	}
	method := optimize.Method(&optimize.NelderMead{})
	if s.NewMethod != nil {
		method = s.NewMethod()
	}

	// The first callback error sticks; later calls short-circuit so the
	// method converges on a flat landscape and returns.
	var (
		mu          sync.Mutex
		callbackErr error
	)
	failed := func(err error) bool {
		mu.Lock()
		defer mu.Unlock()
		if err != nil && callbackErr == nil {
			callbackErr = err
		}
		return callbackErr != nil
	}
	fn := func(x []float64) float64 {
		if failed(ctx.Err()) {
			return 0
		}
		y := append([]float64(nil), x...)
		framework.Clamp(y, p.Bounds)
		violation := 0.0
		for i := range x {
			d := x[i] - y[i]
			violation += d * d
		}
		f, err := p.Objective(y)
		if failed(err) {
			return 0
		}
		for _, g := range p.Constraints {
			v, err := g(y)
			if failed(err) {
				return 0
			}
			if v > 0 {
				violation += v * v
			}
		}
		return f + penalty*violation
	}

	start := append([]float64(nil), p.Start...)
	result, err := optimize.Minimize(optimize.Problem{Func: fn}, start, s.Settings, method)
	if failed(nil) {
		return nil, callbackErr
	}
	if err != nil {
		return nil, fmt.Errorf("gonum minimize: %w", err)
	}
	x := append([]float64(nil), result.X...)
	framework.Clamp(x, p.Bounds)
	return x, nil
}
