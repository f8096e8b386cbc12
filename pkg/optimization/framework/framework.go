package framework

import (
	"math"

	"golang.org/x/exp/rand"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Bounds is the closed interval [L, H] of one decision variable.
type Bounds struct {
	L float64
	H float64
}

// Width returns H - L.
func (b Bounds) Width() float64 {
	return b.H - b.L
}

// Contains reports whether v lies in [L, H].
func (b Bounds) Contains(v float64) bool {
	return v >= b.L && v <= b.H
}

// Clamp projects x into the box described by bounds, in place.
func Clamp(x []float64, bounds []Bounds) {
	for i := range x {
		x[i] = math.Max(bounds[i].L, math.Min(bounds[i].H, x[i]))
	}
}

// RandomVector samples a decision vector uniformly inside bounds.
func RandomVector(bounds []Bounds, rng *rand.Rand) []float64 {
	vars := make([]float64, len(bounds))
	for j, b := range bounds {
		vars[j] = b.L + rng.Float64()*(b.H-b.L)
	}
	return vars
}

// CloneBounds returns a copy of bounds.
func CloneBounds(bounds []Bounds) []Bounds {
	return append([]Bounds(nil), bounds...)
}

// ValidateBounds checks that bounds is non-empty and every interval is
// well formed. Infinite ends are accepted; NaN is not.
func ValidateBounds(path *field.Path, bounds []Bounds) field.ErrorList {
	var errs field.ErrorList
	if len(bounds) == 0 {
		return append(errs, field.Required(path, "at least one decision variable is required"))
	}
	for i, b := range bounds {
		if math.IsNaN(b.L) || math.IsNaN(b.H) {
			errs = append(errs, field.Invalid(path.Index(i), b, "bounds must not be NaN"))
			continue
		}
		if b.L > b.H {
			errs = append(errs, field.Invalid(path.Index(i), b, "lower bound exceeds upper bound"))
		}
	}
	return errs
}

// ValidateFiniteBounds is ValidateBounds plus a finiteness check, required by
// solvers that sample inside the box.
func ValidateFiniteBounds(path *field.Path, bounds []Bounds) field.ErrorList {
	errs := ValidateBounds(path, bounds)
	for i, b := range bounds {
		if math.IsInf(b.L, 0) || math.IsInf(b.H, 0) {
			errs = append(errs, field.Invalid(path.Index(i), b, "bounds must be finite"))
		}
	}
	return errs
}
