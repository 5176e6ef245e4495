// Package types contains the raw value model shared by the row stores and the profiler.
package types

import (
	"github.com/elliotchance/orderedmap/v2"
)

// Row is an ordered column -> raw value mapping as returned by a row store.
// A nil value is NULL.
type Row struct {
	cells *orderedmap.OrderedMap[string, interface{}]
}

// NewRow creates an empty row.
func NewRow() Row {
	return Row{cells: orderedmap.NewOrderedMap[string, interface{}]()}
}

// RowOf builds a row from alternating column/value arguments.
// It panics on an odd argument count or a non-string column name.
func RowOf(kv ...interface{}) Row {
	if len(kv)%2 != 0 {
		panic("types.RowOf: odd number of arguments")
	}
	r := NewRow()
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

// Set assigns a column value, keeping the first insertion position.
func (r Row) Set(column string, value interface{}) {
	r.cells.Set(column, value)
}

// Get returns the value of a column and whether the column exists.
func (r Row) Get(column string) (interface{}, bool) {
	if r.cells == nil {
		return nil, false
	}
	return r.cells.Get(column)
}

// Columns returns the column names in insertion order.
func (r Row) Columns() []string {
	if r.cells == nil {
		return nil
	}
	return r.cells.Keys()
}

// Len returns the number of columns.
func (r Row) Len() int {
	if r.cells == nil {
		return 0
	}
	return r.cells.Len()
}

// Each calls fn for every column in order.
func (r Row) Each(fn func(column string, value interface{})) {
	if r.cells == nil {
		return
	}
	for el := r.cells.Front(); el != nil; el = el.Next() {
		fn(el.Key, el.Value)
	}
}
