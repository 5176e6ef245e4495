package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goerd/internal/profiler"
	"github.com/dbsmedya/goerd/internal/rowstore"
	"github.com/dbsmedya/goerd/internal/state"
)

var (
	filterState  string
	filterStages []string
	filterStrict bool
	filterSave   string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Re-run filter stages on a saved run",
	Long: `Filter applies filter stages to the foreign key candidates of a state file
written by 'goerd profile --state'. The source is read again to rebuild
attribute values; primary keys come from the state.

If the dataset changed since the state was saved, a warning is logged.
With --strict the command fails instead.

Example:
  goerd filter --state run.json --stage name_similarity --save run.json`,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&filterState, "state", "",
		"State file written by the profile command (required)")
	filterCmd.MarkFlagRequired("state")

	filterCmd.Flags().StringSliceVar(&filterStages, "stage", nil,
		"Filter stages to apply, in order (default: filters.stages)")
	filterCmd.Flags().BoolVar(&filterStrict, "strict", false,
		"Fail when the dataset no longer matches the state fingerprint")
	filterCmd.Flags().StringVar(&filterSave, "save", "",
		"Write the narrowed state to this file")

	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(filterStages)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := state.Load(filterState)
	if err != nil {
		if errors.Is(err, state.ErrNoState) {
			return fmt.Errorf("no saved run at %s (run 'goerd profile --state %s' first)", filterState, filterState)
		}
		return err
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
	p.Strict = filterStrict

	next, err := p.RunStages(ctx, st, cfg.Filters.Stages)
	if err != nil {
		return fmt.Errorf("filtering failed: %w", err)
	}

	if filterSave != "" {
		if err := state.Save(filterSave, next); err != nil {
			return err
		}
		log.Infow("Saved run state", "path", filterSave)
	}

	return renderState(cmd, cfg, next)
}
