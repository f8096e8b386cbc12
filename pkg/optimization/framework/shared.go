package framework

import (
	"math"
	"sort"
)

// Dominates checks if objective vector a dominates b under minimization: a is
// no worse in every objective and strictly better in at least one. Vectors of
// different length never dominate each other.
func Dominates(a, b ObjectiveSpacePoint) bool {
	if len(a) != len(b) {
		return false
	}
	better := false
	for i := 0; i < len(a); i++ {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			better = true
		}
	}
	return better
}

// NonDominatedSort performs non-dominated sorting on the population. It
// returns the fronts as indices into population, front 0 first, and sets
// the Rank of every individual to the index of its front.
func NonDominatedSort(population []Individual) [][]int {
	if len(population) == 0 {
		return nil
	}

	var fronts [][]int
	dominated := make([][]int, len(population))
	domCount := make([]int, len(population))

	// Calculate domination for each individual
	for i := 0; i < len(population); i++ {
		for j := i + 1; j < len(population); j++ {
			if Dominates(population[i].Objectives, population[j].Objectives) {
				dominated[i] = append(dominated[i], j)
				domCount[j]++
			} else if Dominates(population[j].Objectives, population[i].Objectives) {
				dominated[j] = append(dominated[j], i)
				domCount[i]++
			}
		}
	}

	// Find first front
	currentFront := []int{}
	for i := 0; i < len(population); i++ {
		if domCount[i] == 0 {
			population[i].Rank = 0
			currentFront = append(currentFront, i)
		}
	}

	// Peel subsequent fronts
	frontIndex := 0
	for len(currentFront) > 0 {
		fronts = append(fronts, currentFront)
		nextFront := []int{}
		for _, idx := range currentFront {
			for _, dominatedIdx := range dominated[idx] {
				domCount[dominatedIdx]--
				if domCount[dominatedIdx] == 0 {
					population[dominatedIdx].Rank = frontIndex + 1
					nextFront = append(nextFront, dominatedIdx)
				}
			}
		}
		sort.Ints(nextFront)
		frontIndex++
		currentFront = nextFront
	}

	return fronts
}

// CrowdingDistance calculates crowding distance for the individuals of a
// single front, given as indices into population. Every member at the minimum
// or maximum of an objective gets +Inf, ties included. An objective whose range
// is zero contributes nothing and only marks the two sorted ends.
func CrowdingDistance(population []Individual, front []int) {
	if len(front) == 0 {
		return
	}
	if len(front) <= 2 {
		for _, idx := range front {
			population[idx].Distance = math.Inf(1)
		}
		return
	}

	for _, idx := range front {
		population[idx].Distance = 0
	}

	order := append([]int(nil), front...)
	numObjectives := len(population[front[0]].Objectives)
	for m := 0; m < numObjectives; m++ {
		// Sort by each objective
		sort.SliceStable(order, func(i, j int) bool {
			return population[order[i]].Objectives[m] < population[order[j]].Objectives[m]
		})

		first, last := order[0], order[len(order)-1]
		population[first].Distance = math.Inf(1)
		population[last].Distance = math.Inf(1)

		lo, hi := population[first].Objectives[m], population[last].Objectives[m]
		objectiveRange := hi - lo
		if objectiveRange == 0 {
			continue
		}
		for _, idx := range order {
			if v := population[idx].Objectives[m]; v == lo || v == hi {
				population[idx].Distance = math.Inf(1)
			}
		}

		for i := 1; i < len(order)-1; i++ {
			prev := population[order[i-1]].Objectives[m]
			next := population[order[i+1]].Objectives[m]
			population[order[i]].Distance += (next - prev) / objectiveRange
		}
	}
}

// NonDominatedFilter returns, in input order, the indices of the points that
// no other point dominates. Exact duplicates are kept once (first occurrence).
func NonDominatedFilter(points []ObjectiveSpacePoint) []int {
	var keep []int
	for i := range points {
		dominated := false
		for j := range points {
			if i == j {
				continue
			}
			if Dominates(points[j], points[i]) || (j < i && equalPoints(points[j], points[i])) {
				dominated = true
				break
			}
		}
		if !dominated {
			keep = append(keep, i)
		}
	}
	return keep
}

func equalPoints(a, b ObjectiveSpacePoint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
