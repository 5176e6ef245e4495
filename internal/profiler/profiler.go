// Package profiler runs the profiling pipeline end to end: it loads every table
// from a row store, profiles attributes, selects primary keys, discovers
// inclusion dependencies and filters them into foreign-key candidates.
package profiler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/goerd/internal/attribute"
	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/filter"
	"github.com/dbsmedya/goerd/internal/logger"
	"github.com/dbsmedya/goerd/internal/pk"
	"github.com/dbsmedya/goerd/internal/rowstore"
	"github.com/dbsmedya/goerd/internal/spider"
	"github.com/dbsmedya/goerd/internal/state"
	"github.com/dbsmedya/goerd/internal/types"
	"github.com/dbsmedya/goerd/internal/verifier"
)

// DriftError is returned by RunStages in strict mode when the dataset no longer
// matches the fingerprint stored in the state.
type DriftError struct {
	Diff verifier.Diff
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("dataset changed since the state was saved (%s)", e.Diff)
}

// Profiler coordinates one profiling run over a row store.
type Profiler struct {
	store  rowstore.Store
	cfg    *config.Config
	logger *logger.Logger

	// Strict makes RunStages fail when the dataset drifted from the saved state.
	Strict bool
}

// New creates a profiler. A nil config falls back to config.DefaultConfig().
func New(store rowstore.Store, cfg *config.Config, log *logger.Logger) (*Profiler, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Profiler{store: store, cfg: cfg, logger: log.Named("profiler")}, nil
}

func (p *Profiler) workers() int {
	if p.cfg.Profiling.Workers > 0 {
		return p.cfg.Profiling.Workers
	}
	return 1
}

// Load reads every table of the store, in listing order. Reads run in
// parallel, bounded by profiling.workers.
func (p *Profiler) Load(ctx context.Context) ([]types.Table, error) {
	names, err := p.store.ListTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]types.Table, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			tbl, err := rowstore.ReadTable(gctx, p.store, name)
			if err != nil {
				return err
			}
			tables[i] = tbl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.logger.Debugf("Loaded %d tables", len(tables))
	return tables, nil
}

// Profile builds the attribute index of the loaded tables. Empty tables
// contribute no attributes; columns without values are kept and reported.
func (p *Profiler) Profile(ctx context.Context, tables []types.Table) (*attribute.Index, error) {
	opts := attribute.OptionsFromConfig(&p.cfg.Profiling)

	profiled := make([][]*attribute.Attribute, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, tbl := range tables {
		i, tbl := i, tbl
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			profiled[i] = attribute.ProfileTable(tbl, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("profiling interrupted: %w", err)
	}

	idx, err := attribute.NewIndex()
	if err != nil {
		return nil, err
	}
	for i, attrs := range profiled {
		log := p.logger.WithTable(tables[i].Name)
		if tables[i].RowCount() == 0 {
			log.Warn("Table has no rows; no primary key will be selected")
			continue
		}
		for _, a := range attrs {
			if a.IsDegenerate() {
				log.Warnw("Column has no non-null values", "column", a.AttributeName)
			}
			if err := idx.Add(a); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

// Discover selects primary keys and finds inclusion dependencies. Both run
// concurrently and both finish before Discover returns.
func (p *Profiler) Discover(ctx context.Context, idx *attribute.Index) (pk.Keys, *spider.Result, error) {
	var (
		keys pk.Keys
		res  *spider.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keys = pk.Select(idx, pk.Options{ExcludeDegenerate: p.cfg.Profiling.ExcludeNullColumnsFromPK})
		return nil
	})
	g.Go(func() error {
		cols := make([]spider.Column, 0, idx.Len())
		idx.Each(func(a *attribute.Attribute) {
			cols = append(cols, spider.NewColumn(a.FullName(), a.Values))
		})
		var err error
		res, err = spider.Discover(gctx, cols)
		if err != nil {
			return fmt.Errorf("inclusion dependency discovery failed: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return keys, res, nil
}

// Run performs a full profiling run. A failed or cancelled run returns no state.
func (p *Profiler) Run(ctx context.Context) (*state.State, error) {
	st := state.New(p.cfg.Source.DatasetName())
	log := p.logger.WithRun(st.RunID.String()).WithFields(map[string]interface{}{
		"dataset": st.Dataset,
		"source":  p.cfg.Source.Kind,
	})
	log.Info("Starting profiling run")

	tables, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := p.Profile(ctx, tables)
	if err != nil {
		return nil, err
	}
	log.Infow("Profiled attributes", "tables", len(tables), "attributes", idx.Len())

	keys, res, err := p.Discover(ctx, idx)
	if err != nil {
		return nil, err
	}
	log.Infow("Discovered inclusion dependencies",
		"primary_keys", len(keys),
		"candidates", len(res.Pairs),
		"value_groups", res.Groups,
	)

	pipeline, err := filter.Build(p.cfg.Filters.Stages, &p.cfg.Filters)
	if err != nil {
		return nil, err
	}
	md := filter.NewMetadata(idx, keys, &p.cfg.Filters, log)
	filtered, results, err := pipeline.Run(ctx, res.Pairs, md)
	if err != nil {
		return nil, err
	}

	st.Tables = make([]types.Summary, len(tables))
	for i, tbl := range tables {
		st.Tables[i] = tbl.Summary()
	}
	st.PrimaryKeys = keys
	st.InclusionDependencies = res.Pairs
	st.Filtered = filtered
	st.StageLog = results
	st.Fingerprint = verifier.FromTables(tables, verifier.MethodSHA256)
	st.CompletedAt = time.Now().UTC()

	log.Infow("Profiling run completed",
		"foreign_keys", len(filtered),
		"duration", st.CompletedAt.Sub(st.StartedAt).String(),
	)
	return st, nil
}

// RunStages applies the named filter stages to the filtered pairs of an
// existing state. The store is re-profiled once to rebuild attribute values;
// primary keys come from the state. When the dataset no longer matches the
// state's fingerprint, RunStages warns, or fails with a DriftError if Strict.
func (p *Profiler) RunStages(ctx context.Context, st *state.State, names []string) (*state.State, error) {
	if st == nil {
		return nil, fmt.Errorf("state is nil")
	}
	log := p.logger.WithRun(st.RunID.String())

	pipeline, err := filter.Build(names, &p.cfg.Filters)
	if err != nil {
		return nil, err
	}

	tables, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}

	if st.Fingerprint != nil {
		cur := verifier.FromTables(tables, st.Fingerprint.Method)
		if diff := verifier.Compare(st.Fingerprint, cur); !diff.Empty() {
			if p.Strict {
				return nil, &DriftError{Diff: diff}
			}
			log.Warnw("Dataset changed since the state was saved", "diff", diff.String())
		}
	}

	idx, err := p.Profile(ctx, tables)
	if err != nil {
		return nil, err
	}

	md := filter.NewMetadata(idx, st.PrimaryKeys, &p.cfg.Filters, log)
	filtered, results, err := pipeline.Run(ctx, st.Filtered, md)
	if err != nil {
		return nil, err
	}

	log.Infow("Re-ran filter stages", "stages", pipeline.Names(), "foreign_keys", len(filtered))
	return st.WithFiltered(filtered, results), nil
}
