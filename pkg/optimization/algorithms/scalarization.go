package algorithms

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Scalarization selects how an objective vector is collapsed into one value
// for a given weight vector.
type Scalarization string

const (
	WeightedSum Scalarization = "WeightedSum"
	Tchebycheff Scalarization = "Tchebycheff"
	PBI         Scalarization = "PBI"
)

// DefaultPBITheta is the penalty used by PBI when none is configured.
const DefaultPBITheta = 5.0

// Valid reports whether s names a known scalarization.
func (s Scalarization) Valid() bool {
	switch s {
	case WeightedSum, Tchebycheff, PBI:
		return true
	}
	return false
}

// Scalarize collapses f under weight w and ideal point z. theta is the PBI
// penalty and is ignored by the other methods.
func Scalarize(kind Scalarization, f, w, z []float64, theta float64) float64 {
	switch kind {
	case WeightedSum:
		return floats.Dot(w, f)
	case PBI:
		return pbi(f, w, z, theta)
	default:
		v := math.Inf(-1)
		for i := range f {
			v = math.Max(v, w[i]*math.Abs(f[i]-z[i]))
		}
		return v
	}
}

// pbi is d1 + theta*d2, where d1 is the length of the projection of f-z on w
// and d2 the distance from f-z to that line.
func pbi(f, w, z []float64, theta float64) float64 {
	diff := make([]float64, len(f))
	floats.SubTo(diff, f, z)
	norm := floats.Norm(w, 2)
	if norm == 0 {
		return floats.Norm(diff, 2) * theta
	}
	d1 := floats.Dot(diff, w) / norm
	perp := make([]float64, len(f))
	floats.AddScaledTo(perp, diff, -d1/norm, w)
	return d1 + theta*floats.Norm(perp, 2)
}
