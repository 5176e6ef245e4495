// Package pk selects one primary key candidate per table.
package pk

import (
	"sort"

	"github.com/dbsmedya/goerd/internal/attribute"
)

// Key is the selected primary key of a table.
type Key struct {
	FullName string  `json:"full_name" yaml:"full_name"`
	Score    float64 `json:"score" yaml:"score"`
}

// Keys maps table name to its selected key.
type Keys map[string]Key

// Lookup returns the key of a table. ok is false for tables without attributes.
func (k Keys) Lookup(table string) (Key, bool) {
	key, ok := k[table]
	return key, ok
}

// IsPrimaryKey reports whether fullName is the selected key of table.
func (k Keys) IsPrimaryKey(table, fullName string) bool {
	key, ok := k[table]
	return ok && key.FullName == fullName
}

// Tables returns the tables with a key in sorted order.
func (k Keys) Tables() []string {
	tables := make([]string, 0, len(k))
	for t := range k {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// Options tune selection.
type Options struct {
	// ExcludeDegenerate drops attributes without values from the candidates.
	ExcludeDegenerate bool
}

// Select picks, per table, the attribute with the strictly greatest PKScore.
// Ties keep the attribute seen first, so the result depends only on column order.
func Select(idx *attribute.Index, opts Options) Keys {
	keys := make(Keys)
	for _, table := range idx.Tables() {
		var best *attribute.Attribute
		for _, a := range idx.ByTable(table) {
			if opts.ExcludeDegenerate && a.IsDegenerate() {
				continue
			}
			if best == nil || a.PKScore() > best.PKScore() {
				best = a
			}
		}
		if best != nil {
			keys[table] = Key{FullName: best.FullName(), Score: best.PKScore()}
		}
	}
	return keys
}
