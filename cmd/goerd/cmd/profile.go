package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goerd/internal/lock"
	"github.com/dbsmedya/goerd/internal/profiler"
	"github.com/dbsmedya/goerd/internal/report"
	"github.com/dbsmedya/goerd/internal/rowstore"
	"github.com/dbsmedya/goerd/internal/state"
)

var (
	profileStages  []string
	profileState   string
	profileINDFile string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile a dataset and detect foreign keys",
	Long: `Profile reads every table of the configured source, selects a primary key
per table, discovers inclusion dependencies and filters them into foreign
key candidates.

The run follows these steps:
  1. Load all tables (in parallel, see profiling.workers)
  2. Profile attributes (HyperLogLog uniqueness, value length, position, suffix)
  3. Select primary keys and discover inclusion dependencies (SPIDER)
  4. Apply the filter stages (primary_key, null, name_similarity, auto_increment)

Example:
  goerd profile --config goerd.yaml --format json --state run.json`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringSliceVar(&profileStages, "stage", nil,
		"Filter stages to apply, in order (overrides filters.stages)")
	profileCmd.Flags().StringVar(&profileState, "state", "",
		"Save the run state to this file; .yaml/.yml writes YAML (overrides output.state)")
	profileCmd.Flags().StringVar(&profileINDFile, "ind-file", "",
		"Write all inclusion dependencies to this file (overrides output.ind_file)")

	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(profileStages)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if profileState != "" {
		cfg.Output.State = profileState
	}
	if profileINDFile != "" {
		cfg.Output.INDFile = profileINDFile
	}

	ctx, stop := signalContext(log)
	defer stop()

	store, err := rowstore.Open(ctx, &cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer store.Close()

	p, err := profiler.New(store, cfg, log)
	if err != nil {
		return err
	}

	var st *state.State
	err = withRunLock(ctx, cfg, log, func() error {
		var runErr error
		st, runErr = p.Run(ctx)
		return runErr
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return fmt.Errorf("dataset %q is already being profiled by another run", cfg.Lock.Name)
		}
		return fmt.Errorf("profiling failed: %w", err)
	}

	if cfg.Output.INDFile != "" {
		if err := report.WriteINDFile(cfg.Output.INDFile, st.InclusionDependencies); err != nil {
			return err
		}
		log.Infow("Wrote inclusion dependencies", "path", cfg.Output.INDFile, "count", len(st.InclusionDependencies))
	}
	if cfg.Output.State != "" {
		if err := state.Save(cfg.Output.State, st); err != nil {
			return err
		}
		log.Infow("Saved run state", "path", cfg.Output.State)
	}

	return renderState(cmd, cfg, st)
}
