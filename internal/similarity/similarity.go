// Package similarity scores how alike two attribute names are.
package similarity

import (
	"math"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/pmezard/go-difflib/difflib"
)

// Scorer returns a similarity in [0,1] for two full names.
type Scorer func(a, b string) float64

// PartialRatio aligns the shorter string against the longer one at every
// matching block a SequenceMatcher finds and returns the best match ratio
// (2*matches / total length), rounded half-to-even to two decimals.
// A window starting near the end of the longer string is cut short, so
// "tracks.album_id" against "albums.id" scores on "album_id".
// Identical strings and substrings score 1; an empty input scores 0.
func PartialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	short, long := runes(a), runes(b)
	if len(short) > len(long) {
		short, long = long, short
		a, b = b, a
	}
	if strings.Contains(b, a) {
		return 1
	}

	best := 0.0
	for _, m := range difflib.NewMatcher(short, long).GetMatchingBlocks() {
		start := max(0, m.B-m.A)
		end := min(start+len(short), len(long))
		r := difflib.NewMatcher(short, long[start:end]).Ratio()
		if r > 0.995 {
			return 1
		}
		best = max(best, r)
	}
	return round2(best)
}

// runes splits s into one-rune strings, the element type difflib compares.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func round2(f float64) float64 {
	return math.RoundToEven(f*100) / 100
}

// Singularizing wraps a scorer so that the table part of each "table.column"
// name is singularized first ("customers.id" becomes "customer.id").
func Singularizing(next Scorer) Scorer {
	return func(a, b string) float64 {
		return next(singularTable(a), singularTable(b))
	}
}

func singularTable(fullName string) string {
	table, column, ok := strings.Cut(fullName, ".")
	if !ok {
		return inflection.Singular(fullName)
	}
	return inflection.Singular(table) + "." + column
}
