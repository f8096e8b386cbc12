package bnb

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// DefaultSimplexTolerance is the reduced-cost tolerance passed to lp.Simplex.
const DefaultSimplexTolerance = 1e-10

// LinearRelaxation solves min c·x subject to G x <= h and the node bounds with
// gonum's simplex. All bounds must be finite.
type LinearRelaxation struct {
	C []float64
	G [][]float64
	H []float64
	// Tolerance zero means DefaultSimplexTolerance.
	Tolerance float64
}

var _ RelaxationSolver = &LinearRelaxation{}

// NewLinearProblem validates a mixed-integer linear program and returns the
// Problem and the relaxation that solves it.
func NewLinearProblem(c []float64, g [][]float64, h []float64, bounds []framework.Bounds, integers []int) (*Problem, *LinearRelaxation, error) {
	errs := framework.ValidateFiniteBounds(field.NewPath("bounds"), bounds)
	if len(c) != len(bounds) {
		errs = append(errs, field.Invalid(field.NewPath("c"), len(c), fmt.Sprintf("expected %d coefficients", len(bounds))))
	}
	if len(g) != len(h) {
		errs = append(errs, field.Invalid(field.NewPath("h"), len(h), fmt.Sprintf("expected %d entries, one per row of G", len(g))))
	}
	for i, row := range g {
		if len(row) != len(c) {
			errs = append(errs, field.Invalid(field.NewPath("g").Index(i), len(row), fmt.Sprintf("expected %d columns", len(c))))
		}
	}
	if err := framework.NewConfigurationError(errs); err != nil {
		return nil, nil, err
	}

	r := &LinearRelaxation{C: c, G: g, H: h}
	p := &Problem{
		Objective: func(x []float64) (float64, error) {
			return floats.Dot(c, x), nil
		},
		Bounds:   framework.CloneBounds(bounds),
		Integers: append([]int(nil), integers...),
	}
	for i := range g {
		row, rhs := g[i], h[i]
		p.Constraints = append(p.Constraints, func(x []float64) (float64, error) {
			return floats.Dot(row, x) - rhs, nil
		})
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	return p, r, nil
}

// Solve shifts the variables to y = x - L and converts the box into slack
// rows so that lp.Simplex sees the standard form A z = b, z >= 0 with
// z = (y, s, t):
//
//	G y + s = h - G L
//	y   + t = H - L
func (r *LinearRelaxation) Solve(_ context.Context, _ *Problem, bounds []framework.Bounds) (Relaxation, error) {
	n, m := len(r.C), len(r.G)
	cols := n + m + n
	a := mat.NewDense(m+n, cols, nil)
	b := make([]float64, m+n)
	lower := make([]float64, n)
	for j, bd := range bounds {
		lower[j] = bd.L
	}

	for i, row := range r.G {
		for j, v := range row {
			a.Set(i, j, v)
		}
		a.Set(i, n+i, 1)
		b[i] = r.H[i] - floats.Dot(row, lower)
	}
	for j, bd := range bounds {
		a.Set(m+j, j, 1)
		a.Set(m+j, n+m+j, 1)
		b[m+j] = bd.H - bd.L
	}

	c := make([]float64, cols)
	copy(c, r.C)

	tol := r.Tolerance
	if tol == 0 {
		tol = DefaultSimplexTolerance
	}
	_, z, err := lp.Simplex(c, a, b, tol, nil)
	if errors.Is(err, lp.ErrInfeasible) {
		return Relaxation{}, nil
	}
	if err != nil {
		return Relaxation{}, fmt.Errorf("simplex: %w", err)
	}

	x := make([]float64, n)
	floats.AddTo(x, z[:n], lower)
	framework.Clamp(x, bounds)
	return Relaxation{Feasible: true, X: x, Objective: floats.Dot(r.C, x)}, nil
}
