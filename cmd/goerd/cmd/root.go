package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	workers      int
	outputFormat string
	outputPath   string
)

var rootCmd = &cobra.Command{
	Use:   "goerd",
	Short: "Relational dataset profiler and foreign key detector",
	Long: `goerd profiles the tables of a relational dataset and reconstructs its
entity relationships without relying on declared constraints.

Features:
  - Primary key detection from HyperLogLog column profiles
  - Unary inclusion dependency discovery (SPIDER)
  - Foreign key filtering by primary key, null, name similarity and
    auto-increment stages
  - MySQL, PostgreSQL, SQLite, SQL Server and CSV directory sources
  - Text, JSON, YAML and mermaid ER diagram reports`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "goerd.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Profiling overrides
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0,
		"Override the number of tables profiled in parallel")

	// Output overrides
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "",
		"Override report format (text, json, yaml, mermaid)")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "",
		"Write the report to a file instead of stdout")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	Workers   int
	Format    string
	Output    string
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		Workers:   workers,
		Format:    outputFormat,
		Output:    outputPath,
	}
}
