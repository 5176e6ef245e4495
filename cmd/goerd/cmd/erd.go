package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goerd/internal/profiler"
	"github.com/dbsmedya/goerd/internal/report"
	"github.com/dbsmedya/goerd/internal/rowstore"
	"github.com/dbsmedya/goerd/internal/state"
)

var erdState string

var erdCmd = &cobra.Command{
	Use:   "erd",
	Short: "Render the detected relationships as a mermaid ER diagram",
	Long: `ERD writes a mermaid erDiagram with one entity per table and one
relationship per detected foreign key. With --state the diagram is drawn
from a saved run; otherwise the source is profiled first.

Example:
  goerd erd --state run.json --output schema.mmd`,
	RunE: runERD,
}

func init() {
	erdCmd.Flags().StringVar(&erdState, "state", "",
		"Draw from a state file instead of profiling the source")

	rootCmd.AddCommand(erdCmd)
}

func runERD(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(nil)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	cfg.Output.Format = string(report.FormatMermaid)

	var st *state.State
	if erdState != "" {
		st, err = state.Load(erdState)
		if err != nil {
			return err
		}
	} else {
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
		if err := withRunLock(ctx, cfg, log, func() error {
			var runErr error
			st, runErr = p.Run(ctx)
			return runErr
		}); err != nil {
			return fmt.Errorf("profiling failed: %w", err)
		}
	}

	return renderState(cmd, cfg, st)
}
