// Package config provides configuration structures and loading for goerd.
package config

// Config represents the complete application configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Profiling ProfilingConfig `yaml:"profiling" mapstructure:"profiling"`
	Filters   FiltersConfig   `yaml:"filters" mapstructure:"filters"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Lock      LockConfig      `yaml:"lock" mapstructure:"lock"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// SourceConfig describes the row store holding the tables to profile.
type SourceConfig struct {
	Kind               string   `yaml:"kind" mapstructure:"kind"` // mysql, postgres, sqlite, mssql, csv
	Host               string   `yaml:"host" mapstructure:"host"`
	Port               int      `yaml:"port" mapstructure:"port"`
	User               string   `yaml:"user" mapstructure:"user"`
	Password           string   `yaml:"password" mapstructure:"password"`
	Database           string   `yaml:"database" mapstructure:"database"`
	Schema             string   `yaml:"schema" mapstructure:"schema"` // postgres/mssql schema filter
	TLS                string   `yaml:"tls" mapstructure:"tls"`       // disable, preferred, required
	DSN                string   `yaml:"dsn" mapstructure:"dsn"`       // raw DSN, wins over the fields above
	Path               string   `yaml:"path" mapstructure:"path"`     // sqlite file or csv directory
	Tables             []string `yaml:"tables" mapstructure:"tables"`
	ExcludeTables      []string `yaml:"exclude_tables" mapstructure:"exclude_tables"`
	NullTokens         []string `yaml:"null_tokens" mapstructure:"null_tokens"` // csv cells read as NULL
	MaxConnections     int      `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int      `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ProfilingConfig controls attribute scoring.
type ProfilingConfig struct {
	Suffixes                 []string `yaml:"suffixes" mapstructure:"suffixes"`
	LengthBaseline           int      `yaml:"length_baseline" mapstructure:"length_baseline"`
	HLLPrecision             int      `yaml:"hll_precision" mapstructure:"hll_precision"` // 14 or 16
	Workers                  int      `yaml:"workers" mapstructure:"workers"`
	ExcludeNullColumnsFromPK bool     `yaml:"exclude_null_columns_from_pk" mapstructure:"exclude_null_columns_from_pk"`
}

// FiltersConfig controls the foreign-key filter pipeline.
type FiltersConfig struct {
	Stages         []string             `yaml:"stages" mapstructure:"stages"`
	OnMissing      string               `yaml:"on_missing" mapstructure:"on_missing"` // abort or skip
	NullToken      string               `yaml:"null_token" mapstructure:"null_token"`
	NameSimilarity NameSimilarityConfig `yaml:"name_similarity" mapstructure:"name_similarity"`
	AutoIncrement  AutoIncrementConfig  `yaml:"auto_increment" mapstructure:"auto_increment"`
}

// NameSimilarityConfig controls candidate confirmation.
type NameSimilarityConfig struct {
	Threshold   float64 `yaml:"threshold" mapstructure:"threshold"`
	Singularize bool    `yaml:"singularize" mapstructure:"singularize"`
}

// AutoIncrementConfig controls the auto-increment stage.
type AutoIncrementConfig struct {
	MinLength         int     `yaml:"min_length" mapstructure:"min_length"`
	StartValues       []int64 `yaml:"start_values" mapstructure:"start_values"`
	RequirePrimaryKey *bool   `yaml:"require_primary_key" mapstructure:"require_primary_key"` // nil keeps the default (true)
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // text, json, yaml, mermaid
	Path    string `yaml:"path" mapstructure:"path"`     // empty means stdout
	INDFile string `yaml:"ind_file" mapstructure:"ind_file"`
	State   string `yaml:"state" mapstructure:"state"` // state file written after a run
}

// LockConfig controls run serialization. Only MySQL sources support it.
type LockConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Name           string `yaml:"name" mapstructure:"name"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

func boolPtr(b bool) *bool { return &b }

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:               "mysql",
			TLS:                "preferred",
			NullTokens:         []string{""},
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Profiling: ProfilingConfig{
			Suffixes:       []string{"key", "id", "nr", "no"},
			LengthBaseline: 8,
			HLLPrecision:   14,
			Workers:        4,
		},
		Filters: FiltersConfig{
			Stages:    []string{"primary_key", "null"},
			OnMissing: "abort",
			NullToken: "nan",
			NameSimilarity: NameSimilarityConfig{
				Threshold: 0.8,
			},
			AutoIncrement: AutoIncrementConfig{
				MinLength:         3,
				StartValues:       []int64{0, 1},
				RequirePrimaryKey: boolPtr(true),
			},
		},
		Output: OutputConfig{
			Format: "text",
		},
		Lock: LockConfig{
			Enabled:        false,
			TimeoutSeconds: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// DefaultPort returns the conventional port for a source kind.
func DefaultPort(kind string) int {
	switch kind {
	case "postgres":
		return 5432
	case "mssql":
		return 1433
	case "mysql":
		return 3306
	default:
		return 0
	}
}

// IsSQL reports whether the source kind is served through database/sql.
func (s *SourceConfig) IsSQL() bool {
	switch s.Kind {
	case "mysql", "postgres", "sqlite", "mssql":
		return true
	}
	return false
}

// DatasetName identifies the profiled dataset in lock names and reports.
func (s *SourceConfig) DatasetName() string {
	switch {
	case s.Database != "":
		return s.Database
	case s.Path != "":
		return s.Path
	default:
		return s.Kind
	}
}
