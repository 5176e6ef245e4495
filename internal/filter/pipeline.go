package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/ind"
)

// DefaultStages is the stage order used when none is configured.
var DefaultStages = []string{StagePrimaryKey, StageNull}

// StageResult records how one stage changed the candidate list.
type StageResult struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Before   int           `json:"before" yaml:"before"`
	After    int           `json:"after" yaml:"after"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Pipeline runs its stages in order, feeding each the previous stage's output.
type Pipeline struct {
	Stages []Stage
}

// Names returns the stage names in run order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name()
	}
	return names
}

// Run applies every stage and returns the surviving pairs plus a per-stage log.
func (p Pipeline) Run(ctx context.Context, pairs []ind.Pair, md *Metadata) ([]ind.Pair, []StageResult, error) {
	results := make([]StageResult, 0, len(p.Stages))
	current := pairs

	for _, stage := range p.Stages {
		log := md.Log.WithStage(stage.Name())
		log.Infow("Applying filter", "candidates", len(current))

		start := time.Now()
		next, err := stage.Apply(ctx, current, md)
		if err != nil {
			return nil, results, fmt.Errorf("filter stage %s failed: %w", stage.Name(), err)
		}

		res := StageResult{
			Stage:    stage.Name(),
			Before:   len(current),
			After:    len(next),
			Duration: time.Since(start),
		}
		results = append(results, res)
		log.Infow("Filter applied", "before", res.Before, "after", res.After, "removed", res.Before-res.After)

		current = next
	}

	return current, results, nil
}

// Build resolves stage names into a Pipeline. An empty list yields DefaultStages.
// Zero or unset fields of cfg keep their defaults.
func Build(names []string, cfg *config.FiltersConfig) (Pipeline, error) {
	if len(names) == 0 {
		names = DefaultStages
	}

	token := DefaultNullToken
	autoOpts := DefaultAutoIncrementOptions()
	if cfg != nil {
		if cfg.NullToken != "" {
			token = cfg.NullToken
		}
		if cfg.AutoIncrement.MinLength > 0 {
			autoOpts.MinLength = cfg.AutoIncrement.MinLength
		}
		if len(cfg.AutoIncrement.StartValues) > 0 {
			autoOpts.StartValues = cfg.AutoIncrement.StartValues
		}
		if cfg.AutoIncrement.RequirePrimaryKey != nil {
			autoOpts.RequirePrimaryKey = *cfg.AutoIncrement.RequirePrimaryKey
		}
	}

	var p Pipeline
	for _, name := range names {
		switch name {
		case StagePrimaryKey:
			p.Stages = append(p.Stages, PrimaryKey())
		case StageNull:
			p.Stages = append(p.Stages, Null(token))
		case StageNameSimilarity:
			p.Stages = append(p.Stages, NameSimilarity())
		case StageAutoIncrement:
			p.Stages = append(p.Stages, AutoIncrement(autoOpts))
		default:
			return Pipeline{}, fmt.Errorf("%w: %q", ErrUnknownStage, name)
		}
	}
	return p, nil
}
