package algorithms

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// Hypervolume2D returns the area dominated by points and bounded by ref, for
// two minimized objectives. Points not strictly better than ref in both
// objectives contribute nothing.
func Hypervolume2D(points []framework.ObjectiveSpacePoint, ref []float64) float64 {
	var inside []framework.ObjectiveSpacePoint
	for _, p := range points {
		if len(p) == 2 && p[0] < ref[0] && p[1] < ref[1] {
			inside = append(inside, p)
		}
	}
	if len(inside) == 0 {
		return 0
	}
	front := make([]framework.ObjectiveSpacePoint, 0, len(inside))
	for _, idx := range framework.NonDominatedFilter(inside) {
		front = append(front, inside[idx])
	}
	sort.Slice(front, func(i, j int) bool {
		return front[i][0] < front[j][0]
	})

	hv := 0.0
	prev := ref[1]
	for _, p := range front {
		hv += (ref[0] - p[0]) * (prev - p[1])
		prev = p[1]
	}
	return hv
}

// IGD is the inverted generational distance: the mean Euclidean distance from
// each point of the reference front to its nearest obtained point.
func IGD(obtained, reference []framework.ObjectiveSpacePoint) float64 {
	if len(reference) == 0 || len(obtained) == 0 {
		return math.Inf(1)
	}
	sum := 0.0
	for _, r := range reference {
		best := math.Inf(1)
		for _, o := range obtained {
			if d := floats.Distance(r, o, 2); d < best {
				best = d
			}
		}
		sum += best
	}
	return sum / float64(len(reference))
}
