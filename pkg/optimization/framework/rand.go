package framework

import "golang.org/x/exp/rand"

// DefaultSeed is used when a caller asks for seed 0, so that "no seed" still
// means a reproducible stream.
const DefaultSeed uint64 = 1

// NewRand returns a deterministic generator. Seed 0 maps to DefaultSeed.
// A *rand.Rand is not safe for concurrent use; solvers only draw from it on
// their serial path.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

// RandOrDefault returns rng, or a DefaultSeed generator when rng is nil.
func RandOrDefault(rng *rand.Rand) *rand.Rand {
	if rng == nil {
		return NewRand(0)
	}
	return rng
}
