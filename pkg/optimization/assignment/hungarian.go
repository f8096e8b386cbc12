// Package assignment solves the linear assignment problem with the Hungarian
// (Kuhn-Munkres) method.
package assignment

import (
	"fmt"
	"math"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// Result is an optimal assignment. Rows matched to padding columns map to -1
// and are left out of Pairs and Cost.
type Result struct {
	RowToCol []int
	// Pairs lists (row, column) in ascending row order.
	Pairs [][2]int
	Cost  float64
}

func validate(path *field.Path, cost [][]float64) error {
	var errs field.ErrorList
	if len(cost) == 0 {
		return nil
	}
	cols := len(cost[0])
	for i, row := range cost {
		if len(row) != cols {
			errs = append(errs, field.Invalid(path.Index(i), len(row), fmt.Sprintf("expected %d columns", cols)))
			continue
		}
		for j, c := range row {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				errs = append(errs, field.Invalid(path.Index(i).Index(j), c, "must be finite"))
			}
		}
	}
	return framework.NewConfigurationError(errs)
}

// Hungarian returns a minimum-cost assignment of rows to columns in O(n^3),
// n = max(rows, cols). Rectangular matrices are padded with zero-cost dummy
// rows or columns, so every row is matched when rows <= cols and every
// column is matched otherwise.
func Hungarian(cost [][]float64) (*Result, error) {
	if err := validate(field.NewPath("cost"), cost); err != nil {
		return nil, err
	}
	rows := len(cost)
	cols := 0
	if rows > 0 {
		cols = len(cost[0])
	}
	res := &Result{RowToCol: make([]int, rows)}
	for i := range res.RowToCol {
		res.RowToCol[i] = -1
	}
	if rows == 0 || cols == 0 {
		return res, nil
	}

	n := max(rows, cols)
	at := func(i, j int) float64 {
		if i < rows && j < cols {
			return cost[i][j]
		}
		return 0
	}

	// Potentials u (rows) and v (columns) are 1-indexed; colOwner[j] is the
	// row matched to column j, 0 meaning free. Column 0 is a sentinel.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	colOwner := make([]int, n+1)
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		colOwner[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}
		for {
			used[j0] = true
			i0, delta, j1 := colOwner[j0], math.Inf(1), 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				if cur := at(i0-1, j-1) - u[i0] - v[j]; cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[colOwner[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if colOwner[j0] == 0 {
				break
			}
		}
		// Augment along the alternating path.
		for j0 != 0 {
			j1 := way[j0]
			colOwner[j0] = colOwner[j1]
			j0 = j1
		}
	}

	for j := 1; j <= n; j++ {
		row, col := colOwner[j]-1, j-1
		if row < rows && col < cols {
			res.RowToCol[row] = col
		}
	}
	for row, col := range res.RowToCol {
		if col >= 0 {
			res.Pairs = append(res.Pairs, [2]int{row, col})
			res.Cost += cost[row][col]
		}
	}
	return res, nil
}

// HungarianMax returns a maximum-profit assignment. Result.Cost holds the
// total profit.
func HungarianMax(profit [][]float64) (*Result, error) {
	if err := validate(field.NewPath("profit"), profit); err != nil {
		return nil, err
	}
	negated := make([][]float64, len(profit))
	for i, row := range profit {
		negated[i] = make([]float64, len(row))
		for j, p := range row {
			negated[i][j] = -p
		}
	}
	res, err := Hungarian(negated)
	if err != nil {
		return nil, err
	}
	res.Cost = 0
	for _, pair := range res.Pairs {
		res.Cost += profit[pair[0]][pair[1]]
	}
	return res, nil
}
