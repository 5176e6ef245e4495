// Package attribute profiles table columns for primary key detection.
//
// Every column becomes an Attribute carrying five scores in [0,1]. Their sum,
// PKScore, ranks the primary key candidates of a table.
package attribute

import (
	"strings"
	"unicode/utf8"

	"github.com/axiomhq/hyperloglog"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/types"
)

// Options tune attribute scoring.
type Options struct {
	// Suffixes mark key-like column names (case-sensitive substring match).
	Suffixes []string
	// LengthBaseline is the value length above which ValueLength starts to drop.
	LengthBaseline int
	// HLLPrecision is the sketch precision, 14 or 16.
	HLLPrecision int
}

// DefaultOptions returns the stock scoring options.
func DefaultOptions() Options {
	return Options{
		Suffixes:       []string{"key", "id", "nr", "no"},
		LengthBaseline: 8,
		HLLPrecision:   14,
	}
}

// OptionsFromConfig maps the profiling section of the configuration.
// Zero or empty fields keep their DefaultOptions value.
func OptionsFromConfig(cfg *config.ProfilingConfig) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	if len(cfg.Suffixes) > 0 {
		opts.Suffixes = cfg.Suffixes
	}
	if cfg.LengthBaseline > 0 {
		opts.LengthBaseline = cfg.LengthBaseline
	}
	if cfg.HLLPrecision != 0 {
		opts.HLLPrecision = cfg.HLLPrecision
	}
	return opts
}

// Attribute is one profiled column.
type Attribute struct {
	TableName     string `json:"table" yaml:"table"`
	AttributeName string `json:"attribute" yaml:"attribute"`

	// Values are the non-null cells in source order, duplicates retained.
	Values []string `json:"-" yaml:"-"`

	Uniqueness  float64 `json:"uniqueness" yaml:"uniqueness"`
	Cardinality float64 `json:"cardinality" yaml:"cardinality"`
	ValueLength float64 `json:"value_length" yaml:"value_length"`
	Position    float64 `json:"position" yaml:"position"`
	Suffix      float64 `json:"suffix" yaml:"suffix"`
}

// New profiles a column. It never fails: an empty column scores
// Uniqueness 0 and ValueLength 1. Position stays 0 until SetPosition.
func New(table, name string, values []string, opts Options) *Attribute {
	a := &Attribute{
		TableName:     table,
		AttributeName: name,
		Values:        values,
		Cardinality:   1,
	}
	a.Uniqueness = estimateUniqueness(values, opts.HLLPrecision)
	a.ValueLength = valueLengthScore(values, opts.LengthBaseline)
	a.Suffix = suffixScore(name, opts.Suffixes)
	return a
}

// FullName returns "table.attribute".
func (a *Attribute) FullName() string {
	return a.TableName + "." + a.AttributeName
}

// PKScore is the sum of the five component scores.
func (a *Attribute) PKScore() float64 {
	return a.Uniqueness + a.Cardinality + a.ValueLength + a.Position + a.Suffix
}

// SetPosition records the zero-based column ordinal as 1/(ordinal+1).
func (a *Attribute) SetPosition(ordinal int) {
	if ordinal < 0 {
		ordinal = 0
	}
	a.Position = 1 / float64(ordinal+1)
}

// IsDegenerate reports whether the column had no non-null values.
func (a *Attribute) IsDegenerate() bool {
	return len(a.Values) == 0
}

func newSketch(precision int) *hyperloglog.Sketch {
	if precision == 16 {
		return hyperloglog.New16()
	}
	return hyperloglog.New14()
}

// estimateUniqueness returns estimated distinct / total, clamped to 1.
func estimateUniqueness(values []string, precision int) float64 {
	if len(values) == 0 {
		return 0
	}

	sk := newSketch(precision)
	for _, v := range values {
		sk.Insert([]byte(v))
	}

	u := float64(sk.Estimate()) / float64(len(values))
	if u > 1 {
		return 1
	}
	return u
}

// valueLengthScore returns 1/max(1, maxLen-baseline); lengths are in runes.
func valueLengthScore(values []string, baseline int) float64 {
	maxLen := 0
	for _, v := range values {
		if n := utf8.RuneCountInString(v); n > maxLen {
			maxLen = n
		}
	}
	d := maxLen - baseline
	if d < 1 {
		d = 1
	}
	return 1 / float64(d)
}

func suffixScore(name string, suffixes []string) float64 {
	for _, s := range suffixes {
		if s != "" && strings.Contains(name, s) {
			return 1
		}
	}
	return 0
}

// ProfileTable profiles every column of tbl in column order and sets positions.
// A table without rows yields no attributes.
func ProfileTable(tbl types.Table, opts Options) []*Attribute {
	if tbl.RowCount() == 0 {
		return nil
	}

	attrs := make([]*Attribute, 0, len(tbl.Columns))
	for i, col := range tbl.Columns {
		a := New(tbl.Name, col, tbl.ColumnText(col), opts)
		a.SetPosition(i)
		attrs = append(attrs, a)
	}
	return attrs
}
