// Package sqlutil provides identifier quoting for the SQL dialects goerd reads from.
package sqlutil

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect names a SQL flavor. Values match config source kinds.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
	MSSQL    Dialect = "mssql"
)

// ParseDialect maps a source kind to its dialect.
func ParseDialect(kind string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(kind)); d {
	case MySQL, Postgres, SQLite, MSSQL:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported SQL dialect %q", kind)
	}
}

// QuoteIdentifier quotes a single identifier for the dialect, escaping the
// closing quote character by doubling it.
//
//	mysql:    my`table -> `my``table`
//	postgres: my"table -> "my""table"
//	mssql:    my]table -> [my]]table]
func (d Dialect) QuoteIdentifier(name string) string {
	switch d {
	case MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case MSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QualifiedName quotes schema.table, or just the table when schema is empty.
func (d Dialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// validIdentifierRegex accepts letters, digits, underscore and dollar.
var validIdentifierRegex = regexp.MustCompile(`^[\p{L}\p{N}_$]+$`)

// IsValidIdentifier reports whether a name needs no special handling in any dialect.
// Profiling still quotes every name; preflight only warns about the rest.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}
