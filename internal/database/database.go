// Package database provides SQL connection management for the profiled source.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"     // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib"     // PostgreSQL driver ("pgx")
	_ "github.com/microsoft/go-mssqldb"    // SQL Server driver ("sqlserver")
	_ "modernc.org/sqlite"                 // SQLite driver ("sqlite")

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/sqlutil"
)

const defaultMaxRetries = 3

// Manager owns the connection pool of the source database.
type Manager struct {
	DB      *sql.DB
	Dialect sqlutil.Dialect

	config       *config.SourceConfig
	open         func(driverName, dsn string) (*sql.DB, error)
	maxRetries   int
	retryBackoff time.Duration
}

// NewManager creates a new database manager from source configuration.
func NewManager(cfg *config.SourceConfig) *Manager {
	return &Manager{
		config:       cfg,
		open:         sql.Open,
		maxRetries:   defaultMaxRetries,
		retryBackoff: time.Second,
	}
}

// NewManagerWithDB wraps an already open pool.
func NewManagerWithDB(db *sql.DB, dialect sqlutil.Dialect) *Manager {
	return &Manager{DB: db, Dialect: dialect}
}

// Connect opens and verifies the source connection.
func (m *Manager) Connect(ctx context.Context) error {
	if m.config == nil {
		return fmt.Errorf("no source configuration")
	}

	dialect, err := sqlutil.ParseDialect(m.config.Kind)
	if err != nil {
		return err
	}

	db, err := m.connectWithRetry(ctx, m.config)
	if err != nil {
		return fmt.Errorf("failed to connect to %s source: %w", m.config.Kind, err)
	}

	m.DB = db
	m.Dialect = dialect
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, cfg *config.SourceConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	backoff := m.retryBackoff
	for i := 0; i < m.maxRetries; i++ {
		db, err = m.connect(cfg)
		if err == nil {
			pingErr := db.PingContext(ctx)
			if pingErr == nil {
				return db, nil
			}
			db.Close()
			err = pingErr
		}

		if i < m.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", m.maxRetries, err)
}

// connect creates a connection pool without verifying it.
func (m *Manager) connect(cfg *config.SourceConfig) (*sql.DB, error) {
	driver, err := DriverName(cfg.Kind)
	if err != nil {
		return nil, err
	}
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := m.open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// DriverName returns the database/sql driver registered for a source kind.
func DriverName(kind string) (string, error) {
	switch kind {
	case "mysql":
		return "mysql", nil
	case "postgres":
		return "pgx", nil
	case "sqlite":
		return "sqlite", nil
	case "mssql":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("no SQL driver for source kind %q", kind)
	}
}

// BuildDSN constructs a driver DSN from configuration. A configured DSN wins.
func BuildDSN(cfg *config.SourceConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	switch cfg.Kind {
	case "mysql":
		return buildMySQLDSN(cfg), nil
	case "postgres":
		return buildPostgresDSN(cfg), nil
	case "mssql":
		return buildMSSQLDSN(cfg), nil
	case "sqlite":
		if cfg.Path == "" {
			return "", fmt.Errorf("sqlite source requires a path")
		}
		return cfg.Path, nil
	default:
		return "", fmt.Errorf("no SQL driver for source kind %q", cfg.Kind)
	}
}

// buildMySQLDSN formats user:password@tcp(host:port)/database?params.
// Temporal columns are read as text so they profile exactly as stored.
func buildMySQLDSN(cfg *config.SourceConfig) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s",
		cfg.User,
		cfg.Password,
		net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		cfg.Database,
	)

	params := "?parseTime=false"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

func buildPostgresDSN(cfg *config.SourceConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}
	switch cfg.TLS {
	case "disable":
		q.Set("sslmode", "disable")
	case "required":
		q.Set("sslmode", "require")
	default:
		q.Set("sslmode", "prefer")
	}
	if cfg.Schema != "" {
		q.Set("search_path", cfg.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func buildMSSQLDSN(cfg *config.SourceConfig) string {
	u := url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}

	q := url.Values{}
	q.Set("database", cfg.Database)
	switch cfg.TLS {
	case "disable":
		q.Set("encrypt", "disable")
	case "required":
		q.Set("encrypt", "true")
	default:
		q.Set("encrypt", "false")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	if err := m.DB.Close(); err != nil {
		return fmt.Errorf("source close: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("source not connected")
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("source ping failed: %w", err)
	}
	return nil
}
