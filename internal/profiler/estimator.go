package profiler

import (
	"context"
	"fmt"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/filter"
	"github.com/dbsmedya/goerd/internal/logger"
	"github.com/dbsmedya/goerd/internal/rowstore"
)

// TableEstimate holds the size of one table.
type TableEstimate struct {
	Name    string   `json:"name" yaml:"name"`
	Rows    int64    `json:"rows" yaml:"rows"`
	Columns []string `json:"columns" yaml:"columns"`
}

// EstimateResult holds the plan of a profiling run.
type EstimateResult struct {
	Dataset string          `json:"dataset" yaml:"dataset"`
	Tables  []TableEstimate `json:"tables" yaml:"tables"`
	Stages  []string        `json:"stages" yaml:"stages"`
	Workers int             `json:"workers" yaml:"workers"`

	TotalRows    int64 `json:"total_rows" yaml:"total_rows"`
	TotalColumns int   `json:"total_columns" yaml:"total_columns"`
	// HeapEntries bounds the values pushed through the discovery heap:
	// every cell counted once, before deduplication.
	HeapEntries int64 `json:"heap_entries" yaml:"heap_entries"`
	// CandidatePairs is the number of ordered column pairs discovery starts from.
	CandidatePairs int64 `json:"candidate_pairs" yaml:"candidate_pairs"`
}

// Estimator sizes a run without profiling anything.
type Estimator struct {
	store  rowstore.Store
	cfg    *config.Config
	logger *logger.Logger
}

// NewEstimator creates a new estimator.
func NewEstimator(store rowstore.Store, cfg *config.Config, log *logger.Logger) *Estimator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Estimator{store: store, cfg: cfg, logger: log}
}

// Estimate counts rows and columns of every table. A table whose size cannot
// be read is reported with zero rows and a warning.
func (e *Estimator) Estimate(ctx context.Context) (*EstimateResult, error) {
	names, err := e.store.ListTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	stages := e.cfg.Filters.Stages
	if len(stages) == 0 {
		stages = filter.DefaultStages
	}
	result := &EstimateResult{
		Dataset: e.cfg.Source.DatasetName(),
		Tables:  make([]TableEstimate, 0, len(names)),
		Stages:  append([]string(nil), stages...),
		Workers: e.cfg.Profiling.Workers,
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("estimate interrupted: %w", err)
		}

		te := TableEstimate{Name: name}
		count, err := rowstore.CountRows(ctx, e.store, name)
		if err != nil {
			e.logger.Warnf("Failed to estimate count for %s: %v", name, err)
		} else {
			te.Rows = count
		}
		cols, err := rowstore.TableColumns(ctx, e.store, name)
		if err != nil {
			e.logger.Warnf("Failed to list columns for %s: %v", name, err)
		} else {
			te.Columns = cols
		}

		result.Tables = append(result.Tables, te)
		result.TotalRows += te.Rows
		result.TotalColumns += len(te.Columns)
		result.HeapEntries += te.Rows * int64(len(te.Columns))
	}

	n := int64(result.TotalColumns)
	if n > 1 {
		result.CandidatePairs = n * (n - 1)
	}
	return result, nil
}
