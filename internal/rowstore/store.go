// Package rowstore reads whole tables from the profiled dataset.
//
// A Store is opened by source kind through a factory registry. SQL kinds share
// SQLStore; csv reads a directory of files; MemoryStore serves library callers
// and tests.
package rowstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/types"
)

var (
	// ErrUnknownKind is returned by Open for an unregistered source kind.
	ErrUnknownKind = errors.New("rowstore: unknown source kind")
	// ErrTableNotFound is returned by ReadRows for a table the store does not hold.
	ErrTableNotFound = errors.New("rowstore: table not found")
)

// Store is the read side of the dataset.
type Store interface {
	// ListTableNames returns every table in the dataset.
	ListTableNames(ctx context.Context) ([]string, error)
	// ReadRows materializes all rows of a table in source order.
	ReadRows(ctx context.Context, table string) ([]types.Row, error)
	// Close releases connections or file handles.
	Close() error
}

// RowCounter is implemented by stores that can count rows without reading them.
type RowCounter interface {
	CountRows(ctx context.Context, table string) (int64, error)
}

// ColumnLister is implemented by stores that can list columns without reading rows.
type ColumnLister interface {
	ListColumns(ctx context.Context, table string) ([]string, error)
}

// Factory opens a Store for a source configuration.
type Factory func(ctx context.Context, cfg *config.SourceConfig) (Store, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a factory available under a source kind.
// Registering the same kind twice panics.
func Register(kind string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if kind == "" {
		panic("rowstore: Register called with empty kind")
	}
	if f == nil {
		panic("rowstore: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("rowstore: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds lists the registered source kinds in sorted order.
func Kinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Open constructs the Store for cfg.Kind. Include and exclude table lists from
// the configuration are applied on top of the opened store.
func Open(ctx context.Context, cfg *config.SourceConfig) (Store, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownKind, cfg.Kind, strings.Join(Kinds(), ", "))
	}

	s, err := f(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if len(cfg.Tables) > 0 || len(cfg.ExcludeTables) > 0 {
		return Filtered(s, cfg.Tables, cfg.ExcludeTables), nil
	}
	return s, nil
}

// ReadTable reads a table and wraps it with its derived column list.
func ReadTable(ctx context.Context, s Store, name string) (types.Table, error) {
	rows, err := s.ReadRows(ctx, name)
	if err != nil {
		return types.Table{}, fmt.Errorf("failed to read table %s: %w", name, err)
	}
	return types.NewTable(name, rows), nil
}

// CountRows counts through RowCounter when s implements it and reads the table otherwise.
func CountRows(ctx context.Context, s Store, table string) (int64, error) {
	if c, ok := s.(RowCounter); ok {
		return c.CountRows(ctx, table)
	}
	rows, err := s.ReadRows(ctx, table)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// TableColumns lists columns through ColumnLister when s implements it and
// derives them from the rows otherwise.
func TableColumns(ctx context.Context, s Store, table string) ([]string, error) {
	if l, ok := s.(ColumnLister); ok {
		return l.ListColumns(ctx, table)
	}
	tbl, err := ReadTable(ctx, s, table)
	if err != nil {
		return nil, err
	}
	return tbl.Columns, nil
}
