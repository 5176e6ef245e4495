// Package filter prunes inclusion dependency candidates down to likely foreign keys.
//
// A Pipeline runs Stages in order. Every stage resolves each pair against the
// attribute index, applies a predicate and returns the passing pairs in their
// original order; stages never add pairs.
package filter

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/goerd/internal/attribute"
	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/ind"
	"github.com/dbsmedya/goerd/internal/logger"
	"github.com/dbsmedya/goerd/internal/pk"
	"github.com/dbsmedya/goerd/internal/similarity"
)

// ErrUnknownStage is returned by Build for a stage name it does not know.
var ErrUnknownStage = errors.New("filter: unknown stage")

// MissingPolicy decides what a stage does with a pair it cannot resolve.
type MissingPolicy string

const (
	// Abort fails the stage with a MissingAttributeError.
	Abort MissingPolicy = "abort"
	// Skip drops the pair and logs a warning.
	Skip MissingPolicy = "skip"
)

// MissingAttributeError reports a pair naming an attribute absent from the index.
type MissingAttributeError struct {
	Stage   string
	Pair    ind.Pair
	Missing string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("stage %s: attribute %s of pair %s not found", e.Stage, e.Missing, e.Pair)
}

// Metadata is the read-only context shared by all stages of a run.
type Metadata struct {
	Attributes  *attribute.Index
	PrimaryKeys pk.Keys
	Scorer      similarity.Scorer
	Threshold   float64
	OnMissing   MissingPolicy
	Log         *logger.Logger
}

// NewMetadata assembles stage metadata from the filters configuration.
func NewMetadata(idx *attribute.Index, keys pk.Keys, cfg *config.FiltersConfig, log *logger.Logger) *Metadata {
	md := &Metadata{
		Attributes:  idx,
		PrimaryKeys: keys,
		Scorer:      similarity.PartialRatio,
		Threshold:   ind.DefaultThreshold,
		OnMissing:   Abort,
		Log:         log,
	}
	if cfg != nil {
		if cfg.NameSimilarity.Singularize {
			md.Scorer = similarity.Singularizing(similarity.PartialRatio)
		}
		if cfg.NameSimilarity.Threshold > 0 {
			md.Threshold = cfg.NameSimilarity.Threshold
		}
		if cfg.OnMissing == string(Skip) {
			md.OnMissing = Skip
		}
	}
	if md.Log == nil {
		md.Log = logger.NewNop()
	}
	return md
}

// resolve turns a pair into a scored inclusion dependency.
func (md *Metadata) resolve(stage string, p ind.Pair) (*ind.InclusionDependency, error) {
	dep, ok := md.Attributes.Get(p.Dependent)
	if !ok {
		return nil, &MissingAttributeError{Stage: stage, Pair: p, Missing: p.Dependent}
	}
	ref, ok := md.Attributes.Get(p.Reference)
	if !ok {
		return nil, &MissingAttributeError{Stage: stage, Pair: p, Missing: p.Reference}
	}
	return ind.New(dep, ref, md.Scorer, md.Threshold), nil
}

// Stage is one pruning step.
type Stage interface {
	Name() string
	Apply(ctx context.Context, pairs []ind.Pair, md *Metadata) ([]ind.Pair, error)
}

type keepFunc func(d *ind.InclusionDependency, md *Metadata) bool

// predicateStage keeps the pairs whose resolved dependency satisfies keep.
// A stage with per-run state sets perRun instead; it is called once per Apply.
type predicateStage struct {
	name   string
	keep   keepFunc
	perRun func() keepFunc
}

func (s *predicateStage) Name() string { return s.name }

func (s *predicateStage) Apply(ctx context.Context, pairs []ind.Pair, md *Metadata) ([]ind.Pair, error) {
	keep := s.keep
	if s.perRun != nil {
		keep = s.perRun()
	}

	out := make([]ind.Pair, 0, len(pairs))
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, err := md.resolve(s.name, p)
		if err != nil {
			var missing *MissingAttributeError
			if errors.As(err, &missing) && md.OnMissing == Skip {
				md.Log.WithStage(s.name).Warnw("Skipping unresolvable pair",
					"pair", p.String(), "missing", missing.Missing)
				continue
			}
			return nil, err
		}

		if keep(d, md) {
			out = append(out, p)
		}
	}
	return out, nil
}
