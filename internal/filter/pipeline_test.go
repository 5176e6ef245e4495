package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/ind"
	"github.com/dbsmedya/goerd/internal/logger"
)

func TestBuild_Default(t *testing.T) {
	p, err := Build(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{StagePrimaryKey, StageNull}, p.Names())
}

func TestBuild_UnknownStage(t *testing.T) {
	_, err := Build([]string{StagePrimaryKey, "fuzzy"}, nil)
	assert.True(t, errors.Is(err, ErrUnknownStage))
	assert.Contains(t, err.Error(), "fuzzy")
}

func TestBuild_UsesConfig(t *testing.T) {
	cfg := config.DefaultConfig().Filters
	cfg.NullToken = "NULL"

	p, err := Build([]string{StageNull}, &cfg)
	require.NoError(t, err)

	md, pairs := fixture(t)
	out, _, err := p.Run(context.Background(), pairs, md)
	require.NoError(t, err)
	assert.Equal(t, pairs, out, "no column consists of the NULL token")
}

func TestPipeline_FullRun(t *testing.T) {
	md, pairs := fixture(t)

	out := run(t, []string{StagePrimaryKey, StageNull, StageNameSimilarity, StageAutoIncrement}, md, pairs)

	assert.Equal(t, []ind.Pair{pair("customers.id", "orders.customer_id")}, out)
}

func TestPipeline_WithoutNameSimilarity(t *testing.T) {
	md, pairs := fixture(t)

	out := run(t, []string{StagePrimaryKey, StageNull, StageAutoIncrement}, md, pairs)

	assert.Equal(t, []ind.Pair{
		pair("customers.id", "orders.amount"),
		pair("regions.region_id", "orders.amount"),
		pair("customers.id", "orders.customer_id"),
		pair("regions.region_id", "orders.customer_id"),
	}, out)
}

func TestPipeline_StageResults(t *testing.T) {
	md, pairs := fixture(t)
	log, logs := logger.NewObserved(zapcore.InfoLevel)
	md.Log = log

	p, err := Build([]string{StagePrimaryKey, StageNameSimilarity}, nil)
	require.NoError(t, err)

	_, results, err := p.Run(context.Background(), pairs, md)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, StagePrimaryKey, results[0].Stage)
	assert.Equal(t, 9, results[0].Before)
	assert.Equal(t, 6, results[0].After)
	assert.Equal(t, 6, results[1].Before)
	assert.Equal(t, 1, results[1].After)
	assert.Equal(t, 2, logs.FilterMessage("Filter applied").Len())
}

func TestPipeline_StopsOnError(t *testing.T) {
	md, _ := fixture(t)

	p, err := Build([]string{StagePrimaryKey, StageNull}, nil)
	require.NoError(t, err)

	_, results, err := p.Run(context.Background(), []ind.Pair{pair("ghost.a", "ghost.b")}, md)

	var missing *MissingAttributeError
	assert.True(t, errors.As(err, &missing))
	assert.Empty(t, results)
}

func TestPipeline_Empty(t *testing.T) {
	md, pairs := fixture(t)

	out, results, err := Pipeline{}.Run(context.Background(), pairs, md)
	require.NoError(t, err)
	assert.Equal(t, pairs, out)
	assert.Empty(t, results)
}
