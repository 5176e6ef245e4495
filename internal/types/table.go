package types

// Table is a fully materialized table snapshot.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable builds a table from rows. Columns are the union of row columns in
// first-seen order, so sparse rows (missing keys) still contribute their columns.
func NewTable(name string, rows []Row) Table {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for _, c := range row.Columns() {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}
	return Table{Name: name, Columns: columns, Rows: rows}
}

// RowCount returns the number of rows.
func (t Table) RowCount() int {
	return len(t.Rows)
}

// ColumnText returns the stringified non-null values of a column in row order.
// Missing cells count as NULL.
func (t Table) ColumnText(column string) []string {
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		v, ok := row.Get(column)
		if !ok {
			continue
		}
		if s, notNull := ToText(v); notNull {
			values = append(values, s)
		}
	}
	return values
}

// Summary is the persisted shape of a table: its name, row count and columns.
type Summary struct {
	Name     string   `json:"name" yaml:"name"`
	RowCount int      `json:"row_count" yaml:"row_count"`
	Columns  []string `json:"columns" yaml:"columns"`
}

// Summary returns the table summary.
func (t Table) Summary() Summary {
	return Summary{Name: t.Name, RowCount: len(t.Rows), Columns: append([]string(nil), t.Columns...)}
}
