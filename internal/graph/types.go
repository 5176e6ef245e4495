// Package graph turns discovered foreign keys into a table relationship graph.
package graph

import "sort"

// Node represents a table in the relationship graph.
type Node struct {
	Name       string   // Table name
	PrimaryKey string   // Selected primary key column (empty if none)
	RowCount   int      // Rows seen during profiling
	Columns    []string // Column names in table order
}

// Edge represents a reference table -> dependent table relationship.
type Edge struct {
	From string // Referenced table
	To   string // Dependent (referencing) table
}

// EdgeMeta holds the column pairs backing an edge. Two tables can be linked
// by more than one foreign key.
type EdgeMeta struct {
	ForeignKeys []ForeignKey
}

// ForeignKey is one dependent column pointing at a reference column.
type ForeignKey struct {
	Column          string // FK column in the dependent table
	ReferenceColumn string // key column in the reference table
}

// Graph holds tables and their foreign key edges.
type Graph struct {
	Nodes        map[string]*Node    // table name -> node
	Children     map[string][]string // reference table -> dependent tables
	Parents      map[string][]string // dependent table -> reference tables
	order        []string            // node insertion order
	edgeMetadata map[Edge]*EdgeMeta
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:        make(map[string]*Node),
		Children:     make(map[string][]string),
		Parents:      make(map[string][]string),
		edgeMetadata: make(map[Edge]*EdgeMeta),
	}
}

// AddNode adds a table node. If node is nil, a bare node is created.
// Adding an existing name replaces the node but keeps its position.
func (g *Graph) AddNode(name string, node *Node) {
	if node == nil {
		node = &Node{Name: name}
	}
	node.Name = name
	if _, exists := g.Nodes[name]; !exists {
		g.order = append(g.order, name)
	}
	g.Nodes[name] = node
}

// AddEdge adds a reference -> dependent edge. Repeated edges are stored once.
func (g *Graph) AddEdge(from, to string) {
	if _, exists := g.edgeMetadata[Edge{From: from, To: to}]; exists {
		return
	}
	g.Children[from] = append(g.Children[from], to)
	g.Parents[to] = append(g.Parents[to], from)
	g.edgeMetadata[Edge{From: from, To: to}] = &EdgeMeta{}
}

// AddForeignKey adds the edge for a foreign key and records the column pair.
func (g *Graph) AddForeignKey(from, to string, fk ForeignKey) {
	g.AddEdge(from, to)
	meta := g.edgeMetadata[Edge{From: from, To: to}]
	for _, existing := range meta.ForeignKeys {
		if existing == fk {
			return
		}
	}
	meta.ForeignKeys = append(meta.ForeignKeys, fk)
}

// GetChildren returns the tables that reference table.
func (g *Graph) GetChildren(table string) []string {
	return g.Children[table]
}

// GetParents returns the tables that table references.
func (g *Graph) GetParents(table string) []string {
	return g.Parents[table]
}

// GetNode returns the node for a table, or nil if not found.
func (g *Graph) GetNode(name string) *Node {
	return g.Nodes[name]
}

// GetEdgeMeta returns metadata for an edge, or nil if not found.
func (g *Graph) GetEdgeMeta(from, to string) *EdgeMeta {
	return g.edgeMetadata[Edge{From: from, To: to}]
}

// HasNode returns true if the graph contains the table.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.Nodes[name]
	return exists
}

// NodeCount returns the number of tables.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of distinct table edges.
func (g *Graph) EdgeCount() int {
	return len(g.edgeMetadata)
}

// AllNodes returns table names in insertion order.
func (g *Graph) AllNodes() []string {
	return append([]string(nil), g.order...)
}

// AllEdges returns every edge, ordered by reference table then dependent table.
func (g *Graph) AllEdges() []Edge {
	edges := make([]Edge, 0, len(g.edgeMetadata))
	for e := range g.edgeMetadata {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// Isolated returns tables with no edges in either direction, in insertion order.
func (g *Graph) Isolated() []string {
	var out []string
	for _, name := range g.order {
		if len(g.Children[name]) == 0 && len(g.Parents[name]) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// InDegree returns the number of tables a table references.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// OutDegree returns the number of tables referencing a table.
func (g *Graph) OutDegree(name string) int {
	return len(g.Children[name])
}
