package graph

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError is returned by LoadOrder when foreign keys form a cycle.
type CycleError struct {
	Total   int      // tables in the graph
	Ordered int      // tables placed before the sort stalled
	Members []string // tables on a cycle
	Blocked []string // tables that only depend on a cycle
	Path    []string // one cycle, e.g. [a b a]; a self reference is [a a]
}

func (e *CycleError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cycle detected in relationship graph: %d of %d tables could not be ordered",
		len(e.Members)+len(e.Blocked), e.Total)
	if len(e.Path) > 0 {
		sb.WriteString("\nCycle path: " + strings.Join(e.Path, " -> "))
	}
	if len(e.Members) > 0 {
		sb.WriteString("\nTables in cycle: " + strings.Join(e.Members, ", "))
	}
	if len(e.Blocked) > 0 {
		sb.WriteString("\nTables blocked by cycle: " + strings.Join(e.Blocked, ", "))
	}
	return sb.String()
}

// readySet yields tables in name order so the load order is deterministic.
type readySet []string

func (r *readySet) push(name string) {
	i := sort.SearchStrings(*r, name)
	*r = append(*r, "")
	copy((*r)[i+1:], (*r)[i:])
	(*r)[i] = name
}

func (r *readySet) pop() string {
	name := (*r)[0]
	*r = (*r)[1:]
	return name
}

// topoSort places every table whose reference tables are already placed,
// smallest name first. Tables caught in or behind a cycle are returned as
// rest, sorted.
func (g *Graph) topoSort() (placed, rest []string) {
	pending := make(map[string]int, len(g.Nodes))
	var ready readySet
	for name := range g.Nodes {
		pending[name] = len(g.Parents[name])
		if pending[name] == 0 {
			ready.push(name)
		}
	}

	for len(ready) > 0 {
		name := ready.pop()
		placed = append(placed, name)
		delete(pending, name)
		for _, dep := range g.Children[name] {
			if pending[dep]--; pending[dep] == 0 {
				ready.push(dep)
			}
		}
	}

	for name := range pending {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return placed, rest
}

// cycleThrough returns a path from start back to start that stays inside
// within, or nil when start is not on such a cycle.
func (g *Graph) cycleThrough(start string, within map[string]bool) []string {
	seen := map[string]bool{start: true}
	path := []string{start}

	var walk func(table string) bool
	walk = func(table string) bool {
		for _, next := range g.Children[table] {
			if next == start {
				path = append(path, start)
				return true
			}
			if !within[next] || seen[next] {
				continue
			}
			seen[next] = true
			path = append(path, next)
			if walk(next) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if walk(start) {
		return path
	}
	return nil
}

// LoadOrder returns tables with referenced tables before the tables that
// reference them. Returns a *CycleError if the foreign keys form a cycle.
func (g *Graph) LoadOrder() ([]string, error) {
	placed, rest := g.topoSort()
	if len(rest) == 0 {
		return placed, nil
	}

	within := make(map[string]bool, len(rest))
	for _, name := range rest {
		within[name] = true
	}

	cerr := &CycleError{Total: len(g.Nodes), Ordered: len(placed)}
	for _, name := range rest {
		path := g.cycleThrough(name, within)
		if path == nil {
			cerr.Blocked = append(cerr.Blocked, name)
			continue
		}
		cerr.Members = append(cerr.Members, name)
		if cerr.Path == nil {
			cerr.Path = path
		}
	}
	return nil, cerr
}
