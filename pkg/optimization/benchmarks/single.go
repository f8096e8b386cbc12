package benchmarks

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

func evaluateFuncs(p framework.Problem, x []float64, funcs []framework.ObjectiveFunc) (framework.ObjectiveSpacePoint, error) {
	if len(x) != len(p.Bounds()) {
		return nil, fmt.Errorf("%s: expected %d variables, got %d", p.Name(), len(p.Bounds()), len(x))
	}
	res := make(framework.ObjectiveSpacePoint, len(funcs))
	for i, f := range funcs {
		res[i] = f(x)
	}
	return res, nil
}

// Sphere is sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Rastrigin is the multimodal 10n + sum(x_i^2 - 10cos(2*pi*x_i)), minimum 0
// at the origin.
func Rastrigin(x []float64) float64 {
	sum := 10.0 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum
}

// UniformBounds returns n copies of [lo, hi].
func UniformBounds(n int, lo, hi float64) []framework.Bounds {
	b := make([]framework.Bounds, n)
	for i := range b {
		b[i] = framework.Bounds{L: lo, H: hi}
	}
	return b
}

// GaussianStep returns a neighbor operator that perturbs one random
// coordinate by N(0, sigma^2) scaled to the variable's width, clamped to
// bounds. It never modifies its input.
func GaussianStep(bounds []framework.Bounds, sigma float64) func(x []float64, rng *rand.Rand) ([]float64, error) {
	return func(x []float64, rng *rand.Rand) ([]float64, error) {
		y := append([]float64(nil), x...)
		i := rng.Intn(len(y))
		y[i] += rng.NormFloat64() * sigma * bounds[i].Width()
		framework.Clamp(y, bounds)
		return y, nil
	}
}
