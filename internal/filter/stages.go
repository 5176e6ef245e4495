package filter

import (
	"sort"
	"strconv"

	"github.com/dbsmedya/goerd/internal/attribute"
	"github.com/dbsmedya/goerd/internal/ind"
)

// Stage names as used in filters.stages.
const (
	StagePrimaryKey     = "primary_key"
	StageNull           = "null"
	StageNameSimilarity = "name_similarity"
	StageAutoIncrement  = "auto_increment"
)

// DefaultNullToken is the placeholder the null stage treats as missing.
const DefaultNullToken = "nan"

// PrimaryKey keeps pairs whose reference is the selected primary key of its table.
func PrimaryKey() Stage {
	return &predicateStage{
		name: StagePrimaryKey,
		keep: func(d *ind.InclusionDependency, md *Metadata) bool {
			return md.PrimaryKeys.IsPrimaryKey(d.Reference.TableName, d.Reference.FullName())
		},
	}
}

// Null drops pairs where either side has no values or only the null token.
func Null(token string) Stage {
	return &predicateStage{
		name: StageNull,
		keep: func(d *ind.InclusionDependency, _ *Metadata) bool {
			return !allNull(d.Dependent, token) && !allNull(d.Reference, token)
		},
	}
}

func allNull(a *attribute.Attribute, token string) bool {
	for _, v := range a.Values {
		if v != token {
			return false
		}
	}
	return true
}

// NameSimilarity keeps confirmed candidates (name similarity above the threshold).
func NameSimilarity() Stage {
	return &predicateStage{
		name: StageNameSimilarity,
		keep: func(d *ind.InclusionDependency, _ *Metadata) bool {
			return d.CandidateConfirmation
		},
	}
}

// AutoIncrementOptions configure the auto-increment stage.
type AutoIncrementOptions struct {
	// MinLength is the fewest distinct values that count as a sequence.
	MinLength int
	// StartValues are the accepted first values of a sequence.
	StartValues []int64
	// RequirePrimaryKey limits the rule to dependents that are their table's key.
	RequirePrimaryKey bool
}

// DefaultAutoIncrementOptions returns the stock rule: a primary key holding
// 0..n or 1..n with at least three values.
func DefaultAutoIncrementOptions() AutoIncrementOptions {
	return AutoIncrementOptions{MinLength: 3, StartValues: []int64{0, 1}, RequirePrimaryKey: true}
}

// AutoIncrement drops pairs whose dependent looks like a surrogate counter:
// its distinct integer values form a gapless run from an accepted start value.
// Such columns are contained in any wider integer column by accident.
func AutoIncrement(opts AutoIncrementOptions) Stage {
	return &predicateStage{
		name: StageAutoIncrement,
		perRun: func() keepFunc {
			// Keyed by full name, so only valid for one index.
			seqCache := make(map[string]bool)
			return func(d *ind.InclusionDependency, md *Metadata) bool {
				dep := d.Dependent
				if opts.RequirePrimaryKey && !md.PrimaryKeys.IsPrimaryKey(dep.TableName, dep.FullName()) {
					return true
				}
				seq, ok := seqCache[dep.FullName()]
				if !ok {
					seq = isSequence(dep.Values, opts)
					seqCache[dep.FullName()] = seq
				}
				return !seq
			}
		},
	}
}

// isSequence reports whether the distinct values parse as integers forming
// start..start+n-1 with start in opts.StartValues and n >= opts.MinLength.
func isSequence(values []string, opts AutoIncrementOptions) bool {
	seen := make(map[int64]bool, len(values))
	nums := make([]int64, 0, len(values))
	for _, v := range values {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false
		}
		if !seen[n] {
			seen[n] = true
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 || len(nums) < opts.MinLength {
		return false
	}

	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

	startOK := false
	for _, s := range opts.StartValues {
		if nums[0] == s {
			startOK = true
			break
		}
	}
	if !startOK {
		return false
	}
	return nums[len(nums)-1]-nums[0] == int64(len(nums)-1)
}
