package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goerd/internal/rowstore"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables a run would profile",
	Long: `Tables lists the source tables after source.tables and
source.exclude_tables are applied, with their row counts.

Example:
  goerd tables --config goerd.yaml`,
	RunE: runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
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

	names, err := store.ListTableNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, name := range names {
		count, err := rowstore.CountRows(ctx, store, name)
		if err != nil {
			return fmt.Errorf("failed to count table %s: %w", name, err)
		}
		fmt.Fprintf(out, "%s\t%d\n", name, count)
	}
	return nil
}
