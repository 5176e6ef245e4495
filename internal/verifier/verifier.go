// Package verifier fingerprints datasets so saved profiling state can detect drift.
package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/dbsmedya/goerd/internal/logger"
	"github.com/dbsmedya/goerd/internal/rowstore"
	"github.com/dbsmedya/goerd/internal/types"
)

// Method defines how a table is fingerprinted.
type Method string

const (
	// MethodCount records row counts only (fast)
	MethodCount Method = "count"
	// MethodSHA256 records row counts and a SHA256 over all rows
	MethodSHA256 Method = "sha256"
)

// TableFingerprint is the fingerprint of one table.
type TableFingerprint struct {
	Rows int64  `json:"rows" yaml:"rows"`
	Hash string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// Fingerprint is the fingerprint of a dataset, keyed by table name.
type Fingerprint struct {
	Method Method                      `json:"method" yaml:"method"`
	Tables map[string]TableFingerprint `json:"tables" yaml:"tables"`
}

// Verifier computes fingerprints from a row store.
type Verifier struct {
	store  rowstore.Store
	method Method
	logger *logger.Logger
}

// NewVerifier creates a verifier. An empty method defaults to sha256.
func NewVerifier(store rowstore.Store, method Method, log *logger.Logger) (*Verifier, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	if method == "" {
		method = MethodSHA256
	}
	if method != MethodCount && method != MethodSHA256 {
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}

	return &Verifier{store: store, method: method, logger: log}, nil
}

// Method returns the configured method.
func (v *Verifier) Method() Method {
	return v.method
}

// Fingerprint reads the given tables from the store and fingerprints them.
// With MethodCount, stores implementing rowstore.RowCounter are asked for counts
// instead of reading rows.
func (v *Verifier) Fingerprint(ctx context.Context, tables []string) (*Fingerprint, error) {
	fp := &Fingerprint{Method: v.method, Tables: make(map[string]TableFingerprint, len(tables))}

	counter, canCount := v.store.(rowstore.RowCounter)
	for _, name := range tables {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fingerprint interrupted: %w", err)
		}

		if v.method == MethodCount && canCount {
			n, err := counter.CountRows(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to count table %s: %w", name, err)
			}
			fp.Tables[name] = TableFingerprint{Rows: n}
			continue
		}

		tbl, err := rowstore.ReadTable(ctx, v.store, name)
		if err != nil {
			return nil, err
		}
		fp.Tables[name] = fingerprintTable(tbl, v.method)
	}

	v.logger.Debugf("Fingerprinted %d tables (method=%s)", len(fp.Tables), v.method)
	return fp, nil
}

// FromTables fingerprints already materialized tables.
func FromTables(tables []types.Table, method Method) *Fingerprint {
	if method == "" {
		method = MethodSHA256
	}
	fp := &Fingerprint{Method: method, Tables: make(map[string]TableFingerprint, len(tables))}
	for _, tbl := range tables {
		fp.Tables[tbl.Name] = fingerprintTable(tbl, method)
	}
	return fp
}

func fingerprintTable(tbl types.Table, method Method) TableFingerprint {
	tf := TableFingerprint{Rows: int64(tbl.RowCount())}
	if method == MethodSHA256 {
		tf.Hash = HashTable(tbl)
	}
	return tf
}

// HashTable returns the hex SHA256 of a table's rows. Rows are serialized in
// column order and sorted first, so the hash does not depend on read order.
func HashTable(tbl types.Table) string {
	lines := make([]string, len(tbl.Rows))
	for i, row := range tbl.Rows {
		lines[i] = serializeRow(tbl.Columns, row)
	}
	sort.Strings(lines)

	hasher := sha256.New()
	for _, line := range lines {
		hasher.Write([]byte(line))
		hasher.Write([]byte("\n"))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// serializeRow converts a row to a deterministic string.
// Format: col1=val1\x00col2=val2...
func serializeRow(columns []string, row types.Row) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		valStr := "NULL"
		if raw, ok := row.Get(col); ok {
			if s, notNull := types.ToText(raw); notNull {
				valStr = s
			}
		}
		parts[i] = col + "=" + valStr
	}
	// null byte separator keeps values containing commas unambiguous
	return strings.Join(parts, "\x00")
}

// Diff lists how two fingerprints differ.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the fingerprints matched.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

func (d Diff) String() string {
	if d.Empty() {
		return "no changes"
	}
	var parts []string
	if len(d.Added) > 0 {
		parts = append(parts, "added: "+strings.Join(d.Added, ", "))
	}
	if len(d.Removed) > 0 {
		parts = append(parts, "removed: "+strings.Join(d.Removed, ", "))
	}
	if len(d.Changed) > 0 {
		parts = append(parts, "changed: "+strings.Join(d.Changed, ", "))
	}
	return strings.Join(parts, "; ")
}

// Compare reports the tables added, removed or changed between old and cur.
// Hashes are only compared when both sides carry one; otherwise row counts decide.
// A nil fingerprint counts as empty.
func Compare(old, cur *Fingerprint) Diff {
	var oldTables, curTables map[string]TableFingerprint
	if old != nil {
		oldTables = old.Tables
	}
	if cur != nil {
		curTables = cur.Tables
	}

	var d Diff
	for name, c := range curTables {
		o, ok := oldTables[name]
		if !ok {
			d.Added = append(d.Added, name)
			continue
		}
		if o.Rows != c.Rows || (o.Hash != "" && c.Hash != "" && o.Hash != c.Hash) {
			d.Changed = append(d.Changed, name)
		}
	}
	for name := range oldTables {
		if _, ok := curTables[name]; !ok {
			d.Removed = append(d.Removed, name)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}
