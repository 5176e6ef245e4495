package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/database"
	"github.com/dbsmedya/goerd/internal/sqlutil"
	"github.com/dbsmedya/goerd/internal/types"
)

func init() {
	for _, kind := range []string{"mysql", "postgres", "sqlite", "mssql"} {
		Register(kind, openSQL)
	}
}

// SQLStore reads tables through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect sqlutil.Dialect
	schema  string
	closer  func() error

	mu     sync.Mutex
	tables map[string]bool
}

func openSQL(ctx context.Context, cfg *config.SourceConfig) (Store, error) {
	mgr := database.NewManager(cfg)
	if err := mgr.Connect(ctx); err != nil {
		return nil, err
	}
	s := NewSQLStore(mgr.DB, mgr.Dialect, cfg.Schema)
	s.closer = mgr.Close
	return s, nil
}

// NewSQLStore wraps an open pool. schema is optional; postgres defaults to
// "public" and mssql to "dbo".
func NewSQLStore(db *sql.DB, dialect sqlutil.Dialect, schema string) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, schema: schema, closer: db.Close}
}

// Dialect returns the SQL dialect of the store.
func (s *SQLStore) Dialect() sqlutil.Dialect {
	return s.dialect
}

func (s *SQLStore) listQuery() (string, []interface{}) {
	switch s.dialect {
	case sqlutil.MySQL:
		if s.schema != "" {
			return "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME",
				[]interface{}{s.schema}
		}
		return "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME", nil
	case sqlutil.Postgres:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name",
			[]interface{}{s.schemaOr("public")}
	case sqlutil.MSSQL:
		return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME",
			[]interface{}{s.schemaOr("dbo")}
	default:
		return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name", nil
	}
}

func (s *SQLStore) schemaOr(def string) string {
	if s.schema != "" {
		return s.schema
	}
	return def
}

// qualified returns the quoted table reference used in SELECT statements.
func (s *SQLStore) qualified(table string) string {
	switch s.dialect {
	case sqlutil.Postgres, sqlutil.MSSQL:
		if s.schema != "" {
			return s.dialect.QualifiedName(s.schema, table)
		}
	}
	return s.dialect.QuoteIdentifier(table)
}

// ListTableNames returns the base tables of the configured schema.
func (s *SQLStore) ListTableNames(ctx context.Context) ([]string, error) {
	query, args := s.listQuery()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(names)

	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	s.mu.Lock()
	s.tables = known
	s.mu.Unlock()

	return names, nil
}

func (s *SQLStore) checkTable(ctx context.Context, table string) error {
	s.mu.Lock()
	known := s.tables
	s.mu.Unlock()

	if known == nil {
		if _, err := s.ListTableNames(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		known = s.tables
		s.mu.Unlock()
	}
	if !known[table] {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return nil
}

// ReadRows runs SELECT * on the table. NULL cells are nil and []byte cells
// are copied into strings.
func (s *SQLStore) ReadRows(ctx context.Context, table string) ([]types.Row, error) {
	if err := s.checkTable(ctx, table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.qualified(table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	var result []types.Row
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		row := types.NewRow()
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row.Set(col, v)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", table, err)
	}

	return result, nil
}

// CountRows returns COUNT(*) of the table.
func (s *SQLStore) CountRows(ctx context.Context, table string) (int64, error) {
	if err := s.checkTable(ctx, table); err != nil {
		return 0, err
	}

	var count interface{}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.qualified(table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return types.ToInt64(count), nil
}

// ListColumns returns the column names of the table from an empty result set.
func (s *SQLStore) ListColumns(ctx context.Context, table string) ([]string, error) {
	if err := s.checkTable(ctx, table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.qualified(table)+" WHERE 1=0")
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	return columns, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
