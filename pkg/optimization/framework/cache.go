package framework

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoizedProblem caches the objective vectors of an underlying Problem,
// keyed by the exact bit pattern of the decision vector. It is safe for
// concurrent use, so it can sit behind EvaluatePopulation.
type MemoizedProblem struct {
	Problem

	cache  *cache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMemoizedProblem wraps p. A ttl <= 0 keeps entries for the lifetime of
// the wrapper.
func NewMemoizedProblem(p Problem, ttl time.Duration) *MemoizedProblem {
	cleanup := time.Duration(0)
	if ttl <= 0 {
		ttl = cache.NoExpiration
	} else {
		cleanup = 2 * ttl
	}
	return &MemoizedProblem{
		Problem: p,
		cache:   cache.New(ttl, cleanup),
	}
}

func (m *MemoizedProblem) Evaluate(x []float64) (ObjectiveSpacePoint, error) {
	key := vectorKey(x)
	if v, ok := m.cache.Get(key); ok {
		m.hits.Add(1)
		return append(ObjectiveSpacePoint(nil), v.(ObjectiveSpacePoint)...), nil
	}
	m.misses.Add(1)
	val, err := m.Problem.Evaluate(x)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, append(ObjectiveSpacePoint(nil), val...), cache.DefaultExpiration)
	return val, nil
}

// Stats returns the number of cache hits and misses so far.
func (m *MemoizedProblem) Stats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}

func vectorKey(x []float64) string {
	buf := make([]byte, 8*len(x))
	for i, v := range x {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return hex.EncodeToString(buf)
}
