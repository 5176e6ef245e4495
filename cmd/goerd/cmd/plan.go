package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goerd/internal/profiler"
	"github.com/dbsmedya/goerd/internal/report"
	"github.com/dbsmedya/goerd/internal/rowstore"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a profiling run would process",
	Long: `Plan sizes a profiling run without profiling anything.

The plan shows:
  - Tables with their row and column counts
  - The number of attributes and candidate column pairs
  - An upper bound on the values pushed through the discovery heap
  - The worker count and filter stages that will run

Example:
  goerd plan --config goerd.yaml`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(nil)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signalContext(log)
	defer stop()

	store, err := rowstore.Open(ctx, &cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer store.Close()

	result, err := profiler.NewEstimator(store, cfg, log).Estimate(ctx)
	if err != nil {
		return fmt.Errorf("estimate failed: %w", err)
	}

	w, closeFn, err := outputWriter(cmd, cfg)
	if err != nil {
		return err
	}
	if err := report.WritePlan(w, result, report.Options{Color: colorEnabled(w)}); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}
