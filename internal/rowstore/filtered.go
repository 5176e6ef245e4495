package rowstore

import (
	"context"
	"fmt"
	"path"

	"github.com/dbsmedya/goerd/internal/types"
)

// filteredStore narrows a store to an include/exclude selection of tables.
type filteredStore struct {
	Store
	include []string
	exclude []string
}

// Filtered restricts s to tables matching include (all when empty) and not
// matching exclude. Patterns use path.Match syntax ("audit_*").
func Filtered(s Store, include, exclude []string) Store {
	return &filteredStore{Store: s, include: include, exclude: exclude}
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
		if p == name {
			return true
		}
	}
	return false
}

func (f *filteredStore) selected(name string) bool {
	if len(f.include) > 0 && !matchAny(f.include, name) {
		return false
	}
	return !matchAny(f.exclude, name)
}

func (f *filteredStore) ListTableNames(ctx context.Context) ([]string, error) {
	names, err := f.Store.ListTableNames(ctx)
	if err != nil {
		return nil, err
	}
	out := names[:0:0]
	for _, n := range names {
		if f.selected(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *filteredStore) ReadRows(ctx context.Context, table string) ([]types.Row, error) {
	if !f.selected(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return f.Store.ReadRows(ctx, table)
}

// CountRows forwards to the wrapped store when it can count.
func (f *filteredStore) CountRows(ctx context.Context, table string) (int64, error) {
	if !f.selected(table) {
		return 0, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return CountRows(ctx, f.Store, table)
}

// ListColumns forwards to the wrapped store.
func (f *filteredStore) ListColumns(ctx context.Context, table string) ([]string, error) {
	if !f.selected(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return TableColumns(ctx, f.Store, table)
}
