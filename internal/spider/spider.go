// Package spider discovers unary inclusion dependencies with a sort-merge
// over the distinct values of every column (the SPIDER algorithm).
//
// Each column contributes a cursor over its sorted distinct values. A min-heap
// yields the smallest pending value together with every column holding it;
// each such column keeps only the candidates that were in the same group.
// After the merge, cand[c] holds exactly the columns whose value sets
// contain the value set of c.
package spider

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/dbsmedya/goerd/internal/ind"
)

// Column is a named column with its sorted distinct values.
type Column struct {
	Name   string
	Values []string
}

// NewColumn builds a column from raw values.
func NewColumn(name string, values []string) Column {
	return Column{Name: name, Values: SortedDistinct(values)}
}

// SortedDistinct returns the distinct values in ascending byte order.
func SortedDistinct(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := append([]string(nil), values...)
	sort.Strings(out)

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// Result is the outcome of one discovery run.
type Result struct {
	// Pairs are ordered by dependent, then reference.
	Pairs []ind.Pair
	// Groups is the number of equal-value groups popped from the heap.
	Groups int
	// HeapSize is the total number of (value, column) entries merged.
	HeapSize int
}

// UnsortedColumnError reports a column whose values are not strictly ascending.
type UnsortedColumnError struct {
	Column string
	Index  int
}

func (e *UnsortedColumnError) Error() string {
	return fmt.Sprintf("column %s: values not sorted and distinct at index %d", e.Column, e.Index)
}

type entry struct {
	value  string
	column int
}

// valueHeap orders entries by value, ties by column ordinal.
type valueHeap []entry

func (h valueHeap) Len() int { return len(h) }
func (h valueHeap) Less(i, j int) bool {
	if h[i].value != h[j].value {
		return h[i].value < h[j].value
	}
	return h[i].column < h[j].column
}
func (h valueHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *valueHeap) Push(x interface{}) { *h = append(*h, x.(entry)) }
func (h *valueHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Discover finds every pair (reference, dependent) of distinct columns where
// the dependent's value set is a subset of the reference's. Columns without
// values are never dependents. Column names must be unique.
//
// The context is checked between groups; a cancelled run returns no result.
func Discover(ctx context.Context, columns []Column) (*Result, error) {
	n := len(columns)
	res := &Result{}

	// cand[c] = columns that may still include c.
	cand := make([]map[int]struct{}, n)
	for c := range columns {
		cand[c] = make(map[int]struct{}, n-1)
		for r := range columns {
			if r != c {
				cand[c][r] = struct{}{}
			}
		}
	}

	cursor := make([]int, n)
	h := make(valueHeap, 0, n)
	for c, col := range columns {
		if len(col.Values) > 0 {
			h = append(h, entry{value: col.Values[0], column: c})
		}
	}
	heap.Init(&h)
	res.HeapSize = len(h)

	inGroup := make([]bool, n)
	group := make([]int, 0, n)

	for h.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		first := heap.Pop(&h).(entry)
		group = append(group[:0], first.column)
		for h.Len() > 0 && h[0].value == first.value {
			group = append(group, heap.Pop(&h).(entry).column)
		}
		res.Groups++

		for _, c := range group {
			inGroup[c] = true
		}
		for _, c := range group {
			for r := range cand[c] {
				if !inGroup[r] {
					delete(cand[c], r)
				}
			}
		}
		for _, c := range group {
			inGroup[c] = false

			cursor[c]++
			vals := columns[c].Values
			if cursor[c] >= len(vals) {
				continue
			}
			next := vals[cursor[c]]
			if next <= first.value {
				return nil, &UnsortedColumnError{Column: columns[c].Name, Index: cursor[c]}
			}
			heap.Push(&h, entry{value: next, column: c})
			res.HeapSize++
		}
	}

	for c, col := range columns {
		if len(col.Values) == 0 {
			continue
		}
		for r := range cand[c] {
			res.Pairs = append(res.Pairs, ind.Pair{Reference: columns[r].Name, Dependent: col.Name})
		}
	}
	ind.SortPairs(res.Pairs)

	return res, nil
}
