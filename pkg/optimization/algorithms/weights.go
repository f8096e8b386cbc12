package algorithms

import (
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"
)

// SimplexLatticeWeights returns the Das-Dennis lattice of weight vectors with
// m components and h divisions: every vector whose components are multiples
// of 1/h summing to 1. There are C(h+m-1, m-1) of them, and for m = 2 they run
// from (0, 1) to (1, 0).
func SimplexLatticeWeights(m, h int) [][]float64 {
	if m < 1 || h < 1 {
		return nil
	}
	weights := make([][]float64, 0, combin.Binomial(h+m-1, m-1))
	current := make([]int, m)

	var fill func(k, remaining int)
	fill = func(k, remaining int) {
		if k == m-1 {
			current[k] = remaining
			w := make([]float64, m)
			for i, c := range current {
				w[i] = float64(c) / float64(h)
			}
			weights = append(weights, w)
			return
		}
		for c := 0; c <= remaining; c++ {
			current[k] = c
			fill(k+1, remaining-c)
		}
	}
	fill(0, h)
	return weights
}

// RandomWeights draws n weight vectors uniformly from the m-simplex by
// normalizing exponential variates.
func RandomWeights(m, n int, rng *rand.Rand) [][]float64 {
	weights := make([][]float64, n)
	for i := range weights {
		w := make([]float64, m)
		for k := range w {
			w[k] = rng.ExpFloat64()
		}
		floats.Scale(1/floats.Sum(w), w)
		weights[i] = w
	}
	return weights
}

// GenerateWeights uses the simplex lattice for up to three objectives, where
// it stays small, and random vectors above that.
func GenerateWeights(m, h, n int, rng *rand.Rand) [][]float64 {
	if m <= 3 {
		return SimplexLatticeWeights(m, h)
	}
	return RandomWeights(m, n, rng)
}

// Neighborhoods returns, for each weight vector, the indices of its t nearest
// weight vectors by Euclidean distance, itself included. Ties go to the lower
// index.
func Neighborhoods(weights [][]float64, t int) [][]int {
	if t > len(weights) {
		t = len(weights)
	}
	neighborhoods := make([][]int, len(weights))
	dist := make([]float64, len(weights))
	for i, wi := range weights {
		order := make([]int, len(weights))
		for j, wj := range weights {
			order[j] = j
			dist[j] = floats.Distance(wi, wj, 2)
		}
		sort.SliceStable(order, func(a, b int) bool {
			return dist[order[a]] < dist[order[b]]
		})
		neighborhoods[i] = order[:t:t]
	}
	return neighborhoods
}
