package profiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/filter"
	"github.com/dbsmedya/goerd/internal/logger"
	"github.com/dbsmedya/goerd/internal/rowstore"
	"github.com/dbsmedya/goerd/internal/sqlutil"
)

// PreflightError represents a preflight check failure.
type PreflightError struct {
	Check   string
	Message string
	Tables  []string
}

func (e *PreflightError) Error() string {
	if len(e.Tables) > 0 {
		return fmt.Sprintf("%s: %s (tables: %v)", e.Check, e.Message, e.Tables)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// Preflight performs sanity checks on a source before profiling it.
type Preflight struct {
	store  rowstore.Store
	cfg    *config.Config
	logger *logger.Logger
}

// NewPreflight creates a new preflight checker.
func NewPreflight(store rowstore.Store, cfg *config.Config, log *logger.Logger) (*Preflight, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Preflight{store: store, cfg: cfg, logger: log}, nil
}

// RunAllChecks runs all preflight checks and stops at the first failure.
// Empty tables only produce warnings.
func (p *Preflight) RunAllChecks(ctx context.Context) error {
	p.logger.Info("Running preflight checks...")

	if err := p.ValidateStages(); err != nil {
		return err
	}

	tables, err := p.ValidateTablesListed(ctx)
	if err != nil {
		return err
	}

	if p.cfg.Source.IsSQL() {
		if err := p.ValidateIdentifiers(tables); err != nil {
			return err
		}
	}

	if _, err := p.WarnEmptyTables(ctx, tables); err != nil {
		return err
	}

	p.logger.Info("All preflight checks PASSED")
	return nil
}

// ValidateStages checks that every configured filter stage exists.
func (p *Preflight) ValidateStages() error {
	if _, err := filter.Build(p.cfg.Filters.Stages, &p.cfg.Filters); err != nil {
		return &PreflightError{
			Check:   "FILTER_STAGE_CHECK",
			Message: err.Error(),
		}
	}
	return nil
}

// ValidateTablesListed lists the source tables. It fails when nothing is
// listed or when an explicitly named table (not a pattern) is absent.
func (p *Preflight) ValidateTablesListed(ctx context.Context) ([]string, error) {
	p.logger.Debug("Checking table listing...")

	tables, err := p.store.ListTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	if len(tables) == 0 {
		return nil, &PreflightError{
			Check:   "TABLE_LISTING_CHECK",
			Message: "No tables found in source",
		}
	}

	listed := make(map[string]bool, len(tables))
	for _, t := range tables {
		listed[t] = true
	}
	var missing []string
	for _, name := range p.cfg.Source.Tables {
		if strings.ContainsAny(name, "*?[") {
			continue
		}
		if !listed[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &PreflightError{
			Check:   "TABLE_EXISTENCE_CHECK",
			Message: "Tables not found in source",
			Tables:  missing,
		}
	}

	p.logger.Debugf("Table listing check PASSED (%d tables)", len(tables))
	return tables, nil
}

// ValidateIdentifiers checks that table names can be quoted safely.
func (p *Preflight) ValidateIdentifiers(tables []string) error {
	var invalid []string
	for _, t := range tables {
		if !sqlutil.IsValidIdentifier(t) {
			invalid = append(invalid, t)
		}
	}
	if len(invalid) > 0 {
		return &PreflightError{
			Check:   "IDENTIFIER_CHECK",
			Message: "Table names contain characters that cannot be quoted safely",
			Tables:  invalid,
		}
	}
	return nil
}

// WarnEmptyTables returns the tables without rows. They are profiled but get
// no primary key.
func (p *Preflight) WarnEmptyTables(ctx context.Context, tables []string) ([]string, error) {
	var empty []string
	for _, t := range tables {
		n, err := rowstore.CountRows(ctx, p.store, t)
		if err != nil {
			return nil, fmt.Errorf("failed to count table %s: %w", t, err)
		}
		if n == 0 {
			empty = append(empty, t)
		}
	}
	if len(empty) > 0 {
		p.logger.Warnf("WARNING: %d tables have no rows and will get no primary key: %v", len(empty), empty)
	}
	return empty, nil
}
