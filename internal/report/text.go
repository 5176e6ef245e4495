package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/goerd/internal/profiler"
	"github.com/dbsmedya/goerd/internal/state"
)

// printer writes the text layout: "=" framed headers, "[Section]" titles and
// aligned columns. The first write error is kept and later writes are skipped.
type printer struct {
	w       io.Writer
	colored bool
	failed  error
}

func (p *printer) paint(c color.Color, s string) string {
	if !p.colored {
		return s
	}
	return c.Sprint(s)
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.failed != nil {
		return
	}
	_, p.failed = fmt.Fprintf(p.w, format, args...)
}

// header prints a framed title.
func (p *printer) header(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	rule := strings.Repeat("=", runewidth.StringWidth(title)+4)
	p.printf("%s\n  %s\n%s\n", rule, p.paint(color.Bold, title), rule)
}

// section prints a section title.
func (p *printer) section(title string) {
	p.printf("\n[%s]\n%s\n", p.paint(color.Cyan, title), strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// table prints rows with every column padded to its widest cell. The first
// row is the heading.
func (p *printer) table(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i < len(row)-1 {
				cell = runewidth.FillRight(cell, widths[i])
			}
			cells[i] = cell
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if r == 0 {
			line = p.paint(color.Gray, line)
		}
		p.printf("  %s\n", line)
	}
}

func (p *printer) none() {
	p.printf("  %s\n", p.paint(color.Gray, "(none)"))
}

// WriteText writes the human-readable report.
func WriteText(w io.Writer, st *state.State, opts Options) error {
	doc, err := NewDocument(st)
	if err != nil {
		return err
	}
	p := &printer{w: w, colored: opts.Color}

	p.header("goerd report: %s", doc.Dataset)
	p.printf("Run:      %s\n", doc.RunID)
	if !doc.CompletedAt.IsZero() {
		p.printf("Duration: %s\n", doc.CompletedAt.Sub(doc.StartedAt).Round(time.Millisecond))
	}

	p.section("Tables")
	rows := [][]string{{"TABLE", "ROWS", "PRIMARY KEY", "COLUMNS"}}
	for _, t := range doc.Tables {
		key := t.PrimaryKey
		if key == "" {
			key = "-"
		}
		rows = append(rows, []string{t.Name, fmt.Sprint(t.Rows), key, strings.Join(t.Columns, ", ")})
	}
	p.table(rows)

	p.section("Foreign Keys")
	if len(doc.ForeignKeys) == 0 {
		p.none()
	}
	for i, fk := range doc.ForeignKeys {
		p.printf("  [%d] %s -> %s\n", i+1, p.paint(color.Green, fk.Dependent), fk.Reference)
	}

	p.section("Filter Stages")
	p.printf("  Inclusion dependencies: %d\n", len(doc.InclusionDependencies))
	if len(doc.Stages) > 0 {
		rows = [][]string{{"STAGE", "BEFORE", "AFTER"}}
		for _, s := range doc.Stages {
			rows = append(rows, []string{s.Stage, fmt.Sprint(s.Before), fmt.Sprint(s.After)})
		}
		p.table(rows)
	}

	p.section("Load Order")
	switch {
	case len(doc.CyclePath) > 0:
		p.printf("  %s %s\n", p.paint(color.Yellow, "cycle:"), strings.Join(doc.CyclePath, " -> "))
	case len(doc.LoadOrder) == 0:
		p.none()
	}
	for i, table := range doc.LoadOrder {
		p.printf("  [%d] %s\n", i+1, table)
	}
	if len(doc.Isolated) > 0 {
		p.printf("  %s %s\n", p.paint(color.Gray, "isolated:"), strings.Join(doc.Isolated, ", "))
	}

	return p.failed
}

// WritePlan writes the estimate shown by the plan command.
func WritePlan(w io.Writer, result *profiler.EstimateResult, opts Options) error {
	if result == nil {
		return fmt.Errorf("estimate is nil")
	}
	p := &printer{w: w, colored: opts.Color}

	p.header("Profiling Plan: %s", result.Dataset)

	p.section("Tables")
	rows := [][]string{{"TABLE", "ROWS", "COLUMNS"}}
	for _, t := range result.Tables {
		rows = append(rows, []string{t.Name, fmt.Sprint(t.Rows), fmt.Sprint(len(t.Columns))})
	}
	p.table(rows)

	p.section("Estimate")
	p.printf("  Tables:          %d\n", len(result.Tables))
	p.printf("  Rows:            %d\n", result.TotalRows)
	p.printf("  Attributes:      %d\n", result.TotalColumns)
	p.printf("  Heap entries:    <= %d\n", result.HeapEntries)
	p.printf("  Candidate pairs: %d\n", result.CandidatePairs)

	p.section("Processing")
	p.printf("  Workers:         %d\n", result.Workers)
	p.printf("  Filter stages:   %s\n", strings.Join(result.Stages, " -> "))

	p.printf("\n%s\n", p.paint(color.Gray, "No data was profiled. Use 'profile' command to execute."))
	return p.failed
}
