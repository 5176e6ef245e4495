// Package ind models inclusion dependencies between two attributes.
package ind

import (
	"sort"

	"github.com/dbsmedya/goerd/internal/attribute"
	"github.com/dbsmedya/goerd/internal/similarity"
)

// DefaultThreshold is the name similarity above which a candidate is confirmed.
const DefaultThreshold = 0.8

// Pair is the textual form of an inclusion dependency: every value of
// Dependent also occurs in Reference. Both are "table.column" full names.
type Pair struct {
	Reference string `json:"reference" yaml:"reference"`
	Dependent string `json:"dependent" yaml:"dependent"`
}

// String renders the pair as "reference=dependent".
func (p Pair) String() string {
	return p.Reference + "=" + p.Dependent
}

// SortPairs orders pairs by dependent, then reference.
func SortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Dependent != pairs[j].Dependent {
			return pairs[i].Dependent < pairs[j].Dependent
		}
		return pairs[i].Reference < pairs[j].Reference
	})
}

// InclusionDependency is a resolved foreign key candidate.
type InclusionDependency struct {
	Dependent             *attribute.Attribute
	Reference             *attribute.Attribute
	NameSimilarity        float64
	CandidateConfirmation bool
}

// New scores the names of both attributes. A nil scorer means
// similarity.PartialRatio; threshold <= 0 means DefaultThreshold.
func New(dependent, reference *attribute.Attribute, score similarity.Scorer, threshold float64) *InclusionDependency {
	if score == nil {
		score = similarity.PartialRatio
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	sim := score(dependent.FullName(), reference.FullName())
	return &InclusionDependency{
		Dependent:             dependent,
		Reference:             reference,
		NameSimilarity:        sim,
		CandidateConfirmation: sim > threshold,
	}
}

// Pair returns the textual form.
func (d *InclusionDependency) Pair() Pair {
	return Pair{Reference: d.Reference.FullName(), Dependent: d.Dependent.FullName()}
}
