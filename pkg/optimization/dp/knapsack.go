package dp

import (
	"fmt"
	"slices"

	"golang.org/x/exp/constraints"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// KnapsackResult is an optimal 0/1 selection.
type KnapsackResult[V constraints.Integer | constraints.Float] struct {
	Value V
	// Items are the selected indices in ascending order.
	Items  []int
	Weight int
}

// Knapsack solves the 0/1 knapsack problem exactly with an
// (n+1) x (capacity+1) table, in O(n*capacity) time and space.
func Knapsack[V constraints.Integer | constraints.Float](weights []int, values []V, capacity int) (*KnapsackResult[V], error) {
	var errs field.ErrorList
	if len(weights) != len(values) {
		errs = append(errs, field.Invalid(field.NewPath("values"), len(values), fmt.Sprintf("expected %d values, one per weight", len(weights))))
	}
	for i, w := range weights {
		if w < 0 {
			errs = append(errs, field.Invalid(field.NewPath("weights").Index(i), w, "must be non-negative"))
		}
	}
	if capacity < 0 {
		errs = append(errs, field.Invalid(field.NewPath("capacity"), capacity, "must be non-negative"))
	}
	if err := framework.NewConfigurationError(errs); err != nil {
		return nil, err
	}

	n := len(weights)
	table := make([][]V, n+1)
	for i := range table {
		table[i] = make([]V, capacity+1)
	}
	for i := 1; i <= n; i++ {
		wi, vi := weights[i-1], values[i-1]
		for w := 0; w <= capacity; w++ {
			table[i][w] = table[i-1][w]
			if wi <= w {
				if take := table[i-1][w-wi] + vi; take > table[i][w] {
					table[i][w] = take
				}
			}
		}
	}

	res := &KnapsackResult[V]{Value: table[n][capacity]}
	w := capacity
	for i := n; i > 0; i-- {
		if table[i][w] != table[i-1][w] {
			res.Items = append(res.Items, i-1)
			res.Weight += weights[i-1]
			w -= weights[i-1]
		}
	}
	slices.Reverse(res.Items)
	return res, nil
}
