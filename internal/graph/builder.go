package graph

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/goerd/internal/ind"
	"github.com/dbsmedya/goerd/internal/state"
)

// Builder constructs a relationship graph from a profiling state.
type Builder struct {
	st *state.State
}

// NewBuilder creates a new graph builder for the given state.
func NewBuilder(st *state.State) *Builder {
	return &Builder{st: st}
}

// Build creates one node per profiled table and one foreign key per filtered pair.
// Cycles are not an error here; LoadOrder reports them.
func (b *Builder) Build() (*Graph, error) {
	if b.st == nil {
		return nil, fmt.Errorf("state is nil")
	}

	g := NewGraph()
	for _, t := range b.st.Tables {
		node := &Node{RowCount: t.RowCount, Columns: append([]string(nil), t.Columns...)}
		if key, ok := b.st.PrimaryKeys.Lookup(t.Name); ok {
			node.PrimaryKey = columnOf(t.Name, key.FullName)
		}
		g.AddNode(t.Name, node)
	}

	for _, p := range b.st.Filtered {
		if err := b.addPair(g, p); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (b *Builder) addPair(g *Graph, p ind.Pair) error {
	refTable, refCol, ok := SplitFullName(p.Reference, g.HasNode)
	if !ok {
		return fmt.Errorf("pair %s: reference %q does not name a profiled table", p, p.Reference)
	}
	depTable, depCol, ok := SplitFullName(p.Dependent, g.HasNode)
	if !ok {
		return fmt.Errorf("pair %s: dependent %q does not name a profiled table", p, p.Dependent)
	}

	g.AddForeignKey(refTable, depTable, ForeignKey{Column: depCol, ReferenceColumn: refCol})
	return nil
}

// SplitFullName splits "table.column" at the first dot whose prefix is a known
// table, so table names containing dots still resolve.
func SplitFullName(fullName string, known func(string) bool) (table, column string, ok bool) {
	for i := 0; i < len(fullName); i++ {
		if fullName[i] != '.' {
			continue
		}
		if known(fullName[:i]) {
			return fullName[:i], fullName[i+1:], true
		}
	}
	return "", "", false
}

func columnOf(table, fullName string) string {
	return strings.TrimPrefix(fullName, table+".")
}

// FromState is a convenience function that builds a graph directly from a state.
func FromState(st *state.State) (*Graph, error) {
	return NewBuilder(st).Build()
}
