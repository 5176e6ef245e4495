package rowstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/goerd/internal/types"
)

// MemoryStore holds tables in memory, listed in insertion order.
type MemoryStore struct {
	mu     sync.RWMutex
	tables *orderedmap.OrderedMap[string, []types.Row]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: orderedmap.NewOrderedMap[string, []types.Row]()}
}

// Put adds or replaces a table.
func (m *MemoryStore) Put(table string, rows ...types.Row) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables.Set(table, rows)
	return m
}

// ListTableNames returns the tables in insertion order.
func (m *MemoryStore) ListTableNames(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tables.Keys(), nil
}

// ReadRows returns the stored rows.
func (m *MemoryStore) ReadRows(_ context.Context, table string) ([]types.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.tables.Get(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return rows, nil
}

// CountRows returns the number of stored rows.
func (m *MemoryStore) CountRows(ctx context.Context, table string) (int64, error) {
	rows, err := m.ReadRows(ctx, table)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
