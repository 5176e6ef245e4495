package rowstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/sqlutil"
)

const mysqlListQuery = "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"

func newMockStore(t *testing.T, dialect sqlutil.Dialect, schema string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, dialect, schema), mock
}

// ============================================================================
// MySQL via sqlmock
// ============================================================================

func TestSQLStore_ListTableNames(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.MySQL, "")

	mock.ExpectQuery(mysqlListQuery).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("orders").AddRow("customers"))

	names, err := store.ListTableNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ReadRows(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.MySQL, "")

	mock.ExpectQuery(mysqlListQuery).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("customers"))
	mock.ExpectQuery("SELECT * FROM `customers`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("alice")).
			AddRow(int64(2), nil))

	rows, err := store.ReadRows(context.Background(), "customers")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"id", "name"}, rows[0].Columns())
	name, _ := rows[0].Get("name")
	assert.Equal(t, "alice", name, "[]byte cells become strings")
	null, ok := rows[1].Get("name")
	assert.True(t, ok)
	assert.Nil(t, null)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ReadRowsUnknownTable(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.MySQL, "")

	mock.ExpectQuery(mysqlListQuery).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("customers"))

	_, err := store.ReadRows(context.Background(), "invoices")
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ReadRowsQueryError(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.MySQL, "")

	mock.ExpectQuery(mysqlListQuery).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("orders"))
	mock.ExpectQuery("SELECT * FROM `orders`").WillReturnError(errors.New("lost connection"))

	_, err := store.ReadRows(context.Background(), "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders")
	assert.Contains(t, err.Error(), "lost connection")
}

func TestSQLStore_ListCachedForReads(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.MySQL, "")

	mock.ExpectQuery(mysqlListQuery).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("a").AddRow("b"))
	mock.ExpectQuery("SELECT * FROM `a`").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT * FROM `b`").WillReturnRows(sqlmock.NewRows([]string{"y"}))

	ctx := context.Background()
	_, err := store.ListTableNames(ctx)
	require.NoError(t, err)
	_, err = store.ReadRows(ctx, "a")
	require.NoError(t, err)
	rows, err := store.ReadRows(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CountRows(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.MySQL, "")

	mock.ExpectQuery(mysqlListQuery).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("orders"))
	mock.ExpectQuery("SELECT COUNT(*) FROM `orders`").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(42)))

	n, err := store.CountRows(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestSQLStore_ListColumns(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.MySQL, "")

	mock.ExpectQuery(mysqlListQuery).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("orders"))
	mock.ExpectQuery("SELECT * FROM `orders` WHERE 1=0").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "customer_id"}))

	cols, err := store.ListColumns(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "customer_id"}, cols)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============================================================================
// Dialect queries
// ============================================================================

func TestSQLStore_PostgresSchema(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.Postgres, "sales")

	mock.ExpectQuery("SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name").
		WithArgs("sales").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders"))
	mock.ExpectQuery(`SELECT * FROM "sales"."orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	rows, err := store.ReadRows(context.Background(), "orders")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_MSSQLDefaultSchema(t *testing.T) {
	store, mock := newMockStore(t, sqlutil.MSSQL, "")

	mock.ExpectQuery("SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME").
		WithArgs("dbo").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("Orders"))
	mock.ExpectQuery("SELECT * FROM [Orders]").
		WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(int64(7)))

	rows, err := store.ReadRows(context.Background(), "Orders")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("Id")
	assert.Equal(t, int64(7), v)
}

// ============================================================================
// SQLite end to end through Open
// ============================================================================

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER, amount REAL);
		INSERT INTO customers VALUES (1, 'alice'), (2, 'bob');
		INSERT INTO orders VALUES (10, 1, 9.5), (11, 2, NULL);
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := Open(context.Background(), &config.SourceConfig{Kind: "sqlite", Path: path})
	require.NoError(t, err)
	defer store.Close()

	names, err := store.ListTableNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names)

	rows, err := store.ReadRows(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "customer_id", "amount"}, rows[0].Columns())

	amount, _ := rows[0].Get("amount")
	assert.Equal(t, 9.5, amount)
	missing, _ := rows[1].Get("amount")
	assert.Nil(t, missing)

	counter, ok := store.(RowCounter)
	require.True(t, ok)
	n, err := counter.CountRows(context.Background(), "customers")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
