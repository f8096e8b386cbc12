package algorithms

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// SBX performs bounded Simulated Binary Crossover with distribution index
// eta. The spread of each child is limited by the distance from the parents to
// its side of the box, so offspring land inside bounds instead of piling up on
// the edges. With probability 1-rate the children are plain copies of the
// parents. Children are clamped to bounds.
func SBX(parent1, parent2 []float64, bounds []framework.Bounds, eta, rate float64, rng *rand.Rand) ([]float64, []float64) {
	child1 := append([]float64(nil), parent1...)
	child2 := append([]float64(nil), parent2...)

	if rng.Float64() >= rate {
		return child1, child2
	}

	for i := range parent1 {
		if rng.Float64() > 0.5 || math.Abs(parent1[i]-parent2[i]) < 1e-14 {
			continue
		}
		y1, y2 := math.Min(parent1[i], parent2[i]), math.Max(parent1[i], parent2[i])
		spread := y2 - y1
		u := rng.Float64()

		c1 := 0.5 * ((y1 + y2) - sbxBeta(1+2*(y1-bounds[i].L)/spread, eta, u)*spread)
		c2 := 0.5 * ((y1 + y2) + sbxBeta(1+2*(bounds[i].H-y2)/spread, eta, u)*spread)

		if rng.Float64() < 0.5 {
			c1, c2 = c2, c1
		}
		child1[i], child2[i] = c1, c2
	}

	// Bound checking
	framework.Clamp(child1, bounds)
	framework.Clamp(child2, bounds)
	return child1, child2
}

// sbxBeta returns the spread factor for a child whose side of the box allows
// at most beta, drawn with the uniform variate u.
func sbxBeta(beta, eta, u float64) float64 {
	exp := 1.0 / (eta + 1.0)
	alpha := 2 - math.Pow(beta, -(eta + 1))
	if u <= 1/alpha {
		return math.Pow(u*alpha, exp)
	}
	return math.Pow(1/(2-u*alpha), exp)
}

// PolynomialMutation mutates x in place. Each variable is perturbed with
// probability rate by a polynomially distributed step of index eta scaled to
// the variable's width, then clamped.
func PolynomialMutation(x []float64, bounds []framework.Bounds, eta, rate float64, rng *rand.Rand) {
	exp := 1.0 / (eta + 1.0)
	for i := range x {
		if rng.Float64() >= rate {
			continue
		}
		u := rng.Float64()
		delta := 0.0
		if u <= 0.5 {
			delta = math.Pow(2*u, exp) - 1
		} else {
			delta = 1 - math.Pow(2*(1-u), exp)
		}

		x[i] += delta * bounds[i].Width()
	}
	framework.Clamp(x, bounds)
}

// TournamentSelect returns the index of the winner of a tournament of the
// given size: lower rank wins, ties go to the larger crowding distance.
func TournamentSelect(population []framework.Individual, tournamentSize int, rng *rand.Rand) int {
	if tournamentSize < 2 {
		tournamentSize = 2 // minimum tournament size
	}
	best := rng.Intn(len(population))

	for i := 1; i < tournamentSize; i++ {
		contestant := rng.Intn(len(population))
		c, b := population[contestant], population[best]
		if c.Rank < b.Rank || (c.Rank == b.Rank && c.Distance > b.Distance) {
			best = contestant
		}
	}

	return best
}
