package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goerd/internal/lock"
	"github.com/dbsmedya/goerd/internal/logger"
	"github.com/dbsmedya/goerd/internal/profiler"
	"github.com/dbsmedya/goerd/internal/rowstore"
	"github.com/dbsmedya/goerd/internal/state"
	"github.com/dbsmedya/goerd/internal/verifier"
)

var (
	validateState     string
	validateCountOnly bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and runs preflight checks
against the source to ensure a profiling run can start.

Checks performed:
  - Configuration syntax and required fields
  - Filter stage names
  - Source connectivity and table listing
  - Table name quoting (SQL sources)
  - Empty table warnings
  - Whether another run holds the run lock (lock.enabled)
  - With --state, whether the dataset still matches a saved run

Example:
  goerd validate --config goerd.yaml --state run.json`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateState, "state", "",
		"Check the dataset against the fingerprint of a saved run")
	validateCmd.Flags().BoolVar(&validateCountOnly, "count-only", false,
		"Compare row counts only when checking --state")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, log, err := setup(nil)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fmt.Fprintf(out, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(out, "Config file: %s\n", GetConfigFile())
	fmt.Fprintf(out, "Source: %s (%s)\n", cfg.Source.DatasetName(), cfg.Source.Kind)
	fmt.Fprintf(out, "Filter stages: %v\n\n", cfg.Filters.Stages)

	ctx, stop := signalContext(log)
	defer stop()

	store, err := rowstore.Open(ctx, &cfg.Source)
	if err != nil {
		fmt.Fprintf(out, "❌ Source connection failed: %v\n", err)
		return fmt.Errorf("validation failed: %w", err)
	}
	defer store.Close()

	checker, err := profiler.NewPreflight(store, cfg, log)
	if err != nil {
		return err
	}
	if err := checker.RunAllChecks(ctx); err != nil {
		fmt.Fprintf(out, "❌ Preflight checks failed: %v\n", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	if cfg.Lock.Enabled {
		busy, err := runInProgress(ctx, cfg)
		if err != nil {
			fmt.Fprintf(out, "❌ Run lock check failed: %v\n", err)
			return fmt.Errorf("validation failed: %w", err)
		}
		if busy {
			fmt.Fprintf(out, "⚠️  Another run holds lock %s\n", lock.GenerateRunLockName(cfg.Lock.Name))
		}
	}

	if validateState != "" {
		if err := checkDrift(ctx, out, store, log); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	fmt.Fprintln(out, "✅ All checks passed")
	fmt.Fprintln(out, "=== Validation Complete ===")
	return nil
}

// checkDrift fingerprints the source and compares it with the saved run.
func checkDrift(ctx context.Context, out io.Writer, store rowstore.Store, log *logger.Logger) error {
	st, err := state.Load(validateState)
	if err != nil {
		return err
	}

	method := verifier.MethodSHA256
	if validateCountOnly {
		method = verifier.MethodCount
	}
	v, err := verifier.NewVerifier(store, method, log)
	if err != nil {
		return err
	}

	names, err := store.ListTableNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	cur, err := v.Fingerprint(ctx, names)
	if err != nil {
		return err
	}

	diff := verifier.Compare(st.Fingerprint, cur)
	if !diff.Empty() {
		fmt.Fprintf(out, "❌ Dataset changed since %s: %s\n", validateState, diff)
		return fmt.Errorf("dataset changed: %s", diff)
	}
	fmt.Fprintf(out, "✅ Dataset matches %s (%d tables)\n", validateState, len(cur.Tables))
	return nil
}
