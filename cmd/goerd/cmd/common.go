package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/database"
	"github.com/dbsmedya/goerd/internal/lock"
	"github.com/dbsmedya/goerd/internal/logger"
	"github.com/dbsmedya/goerd/internal/report"
	"github.com/dbsmedya/goerd/internal/state"
)

// loadConfig loads the config file, applies CLI overrides and validates the result.
func loadConfig(stages []string) (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	o := GetCLIOverrides()
	cfg.ApplyOverrides(o.LogLevel, o.LogFormat, o.Workers, o.Format, o.Output, stages)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger.
func setup(stages []string) (*config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(stages)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// signalContext cancels on SIGINT/SIGTERM and logs the signal.
func signalContext(log *logger.Logger) (context.Context, context.CancelFunc) {
	return database.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - cancelling run", "signal", sig.String())
	})
}

// withRunLock runs fn under the dataset's advisory lock when locking is
// enabled. The lock uses its own connection to the (MySQL) source.
func withRunLock(ctx context.Context, cfg *config.Config, log *logger.Logger, fn func() error) error {
	if !cfg.Lock.Enabled {
		return fn()
	}

	mgr := database.NewManager(&cfg.Source)
	if err := mgr.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect for run lock: %w", err)
	}
	defer mgr.Close()

	log.Infow("Acquiring run lock", "lock", lock.GenerateRunLockName(cfg.Lock.Name))
	return lock.WithRunLock(ctx, mgr.DB, cfg.Lock.Name, cfg.Lock.TimeoutSeconds, log, fn)
}

// runInProgress reports whether another session holds the dataset's run lock.
func runInProgress(ctx context.Context, cfg *config.Config) (bool, error) {
	mgr := database.NewManager(&cfg.Source)
	if err := mgr.Connect(ctx); err != nil {
		return false, fmt.Errorf("failed to connect for run lock: %w", err)
	}
	defer mgr.Close()
	return lock.IsRunInProgress(ctx, mgr.DB, cfg.Lock.Name)
}

// outputWriter returns where the report goes: the configured file or the
// command's stdout. The returned close function must be called.
func outputWriter(cmd *cobra.Command, cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.Output.Path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(cfg.Output.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// colorEnabled reports whether w is the terminal's stdout and supports color.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout && color.SupportColor()
}

// renderState writes st in the configured format.
func renderState(cmd *cobra.Command, cfg *config.Config, st *state.State) error {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	w, closeFn, err := outputWriter(cmd, cfg)
	if err != nil {
		return err
	}
	if err := report.Write(w, st, format, report.Options{Color: colorEnabled(w)}); err != nil {
		closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeFn()
}
