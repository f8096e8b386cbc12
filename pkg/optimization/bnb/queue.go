package bnb

import (
	"container/heap"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

type node struct {
	id     int
	parent int
	depth  int
	bound  float64
	bounds []framework.Bounds
}

// openList is a min-heap of nodes on (bound, id).
type openList []*node

var _ heap.Interface = &openList{}

func (q openList) Len() int { return len(q) }

func (q openList) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	return q[i].id < q[j].id
}

func (q openList) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *openList) Push(x any) {
	*q = append(*q, x.(*node))
}

func (q *openList) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
