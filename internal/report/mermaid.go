package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/dbsmedya/goerd/internal/graph"
	"github.com/dbsmedya/goerd/internal/state"
)

// WriteMermaid writes an erDiagram with one entity per table and one
// relationship per foreign key.
func WriteMermaid(w io.Writer, st *state.State) error {
	if st == nil {
		return fmt.Errorf("state is nil")
	}
	g, err := graph.FromState(st)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, MermaidSyntax(g))
	return err
}

// MermaidSyntax renders a relationship graph as mermaid erDiagram source.
func MermaidSyntax(g *graph.Graph) string {
	var sb strings.Builder
	sb.WriteString("erDiagram\n")

	// dependent table -> its foreign key columns
	fkColumns := make(map[string]map[string]bool)
	for _, e := range g.AllEdges() {
		for _, fk := range g.GetEdgeMeta(e.From, e.To).ForeignKeys {
			if fkColumns[e.To] == nil {
				fkColumns[e.To] = make(map[string]bool)
			}
			fkColumns[e.To][fk.Column] = true
		}
	}

	for _, name := range g.AllNodes() {
		node := g.GetNode(name)
		sb.WriteString(fmt.Sprintf("    %s {\n", sanitizeNodeID(name)))
		for _, col := range node.Columns {
			var keys []string
			if col == node.PrimaryKey {
				keys = append(keys, "PK")
			}
			if fkColumns[name][col] {
				keys = append(keys, "FK")
			}
			line := "string " + sanitizeNodeID(col)
			if len(keys) > 0 {
				line += " " + strings.Join(keys, ", ")
			}
			sb.WriteString(fmt.Sprintf("        %s\n", line))
		}
		sb.WriteString("    }\n")
	}

	for _, e := range g.AllEdges() {
		fks := g.GetEdgeMeta(e.From, e.To).ForeignKeys
		for _, fk := range fks {
			sb.WriteString(fmt.Sprintf("    %s ||--o{ %s : %q\n",
				sanitizeNodeID(e.From), sanitizeNodeID(e.To), relationLabel(e.From, fk, len(fks))))
		}
	}

	return sb.String()
}

// relationLabel names a relationship after the singular reference table, or
// after the foreign key column when two tables are linked more than once.
func relationLabel(reference string, fk graph.ForeignKey, linksBetweenTables int) string {
	if linksBetweenTables > 1 {
		return fk.Column
	}
	return inflection.Singular(reference)
}

// sanitizeNodeID ensures table and column names are valid mermaid identifiers.
func sanitizeNodeID(name string) string {
	return strings.NewReplacer(
		".", "_",
		" ", "_",
		"`", "",
		"\"", "",
	).Replace(name)
}
