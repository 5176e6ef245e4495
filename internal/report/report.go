// Package report renders profiling results for people and tools.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/goerd/internal/filter"
	"github.com/dbsmedya/goerd/internal/graph"
	"github.com/dbsmedya/goerd/internal/ind"
	"github.com/dbsmedya/goerd/internal/spider"
	"github.com/dbsmedya/goerd/internal/state"
)

// Format selects a renderer.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMermaid Format = "mermaid"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat maps a format name, case-insensitively. Empty means text.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatMermaid:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (expected text, json, yaml or mermaid)", ErrUnknownFormat, name)
	}
}

// Options tune rendering.
type Options struct {
	// Color enables ANSI styling in the text format.
	Color bool
}

// TableReport describes one profiled table.
type TableReport struct {
	Name       string   `json:"name" yaml:"name"`
	Rows       int      `json:"rows" yaml:"rows"`
	Columns    []string `json:"columns" yaml:"columns"`
	PrimaryKey string   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Score      float64  `json:"pk_score,omitempty" yaml:"pk_score,omitempty"`
}

// Document is the machine-readable report.
type Document struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Dataset     string    `json:"dataset" yaml:"dataset"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`

	Tables                []TableReport        `json:"tables" yaml:"tables"`
	ForeignKeys           []ind.Pair           `json:"foreign_keys" yaml:"foreign_keys"`
	InclusionDependencies []ind.Pair           `json:"inclusion_dependencies" yaml:"inclusion_dependencies"`
	Stages                []filter.StageResult `json:"stages" yaml:"stages"`

	// LoadOrder lists referenced tables first. It is empty when the foreign
	// keys form a cycle; CyclePath then holds one cycle.
	LoadOrder []string `json:"load_order,omitempty" yaml:"load_order,omitempty"`
	CyclePath []string `json:"cycle_path,omitempty" yaml:"cycle_path,omitempty"`

	// Isolated lists tables without any foreign key in either direction.
	Isolated []string `json:"isolated,omitempty" yaml:"isolated,omitempty"`
}

// NewDocument builds the report of a state.
func NewDocument(st *state.State) (*Document, error) {
	if st == nil {
		return nil, fmt.Errorf("state is nil")
	}

	doc := &Document{
		RunID:                 st.RunID.String(),
		Dataset:               st.Dataset,
		StartedAt:             st.StartedAt,
		CompletedAt:           st.CompletedAt,
		Tables:                make([]TableReport, 0, len(st.Tables)),
		ForeignKeys:           nonNil(st.Filtered),
		InclusionDependencies: nonNil(st.InclusionDependencies),
		Stages:                st.StageLog,
	}
	if doc.Stages == nil {
		doc.Stages = []filter.StageResult{}
	}

	g, err := graph.FromState(st)
	if err != nil {
		return nil, err
	}
	for _, name := range g.AllNodes() {
		node := g.GetNode(name)
		tr := TableReport{Name: name, Rows: node.RowCount, Columns: node.Columns, PrimaryKey: node.PrimaryKey}
		if key, ok := st.PrimaryKeys.Lookup(name); ok {
			tr.Score = key.Score
		}
		doc.Tables = append(doc.Tables, tr)
	}
	doc.Isolated = g.Isolated()

	order, err := g.LoadOrder()
	var cycleErr *graph.CycleError
	switch {
	case err == nil:
		doc.LoadOrder = order
	case errors.As(err, &cycleErr):
		doc.CyclePath = cycleErr.Path
	default:
		return nil, err
	}
	return doc, nil
}

func nonNil(pairs []ind.Pair) []ind.Pair {
	if pairs == nil {
		return []ind.Pair{}
	}
	return pairs
}

// Write renders st in the given format.
func Write(w io.Writer, st *state.State, format Format, opts Options) error {
	switch format {
	case FormatText, "":
		return WriteText(w, st, opts)
	case FormatJSON:
		return WriteJSON(w, st)
	case FormatYAML:
		return WriteYAML(w, st)
	case FormatMermaid:
		return WriteMermaid(w, st)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, st *state.State) error {
	doc, err := NewDocument(st)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report as json: %w", err)
	}
	return nil
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, st *state.State) error {
	doc, err := NewDocument(st)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report as yaml: %w", err)
	}
	return enc.Close()
}

// WriteINDFile writes the inclusion dependency audit file, one
// "reference=dependent" line per pair.
func WriteINDFile(path string, pairs []ind.Pair) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := spider.WriteOutput(f, pairs); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
