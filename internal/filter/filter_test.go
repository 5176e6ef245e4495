package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/dbsmedya/goerd/internal/attribute"
	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/ind"
	"github.com/dbsmedya/goerd/internal/logger"
	"github.com/dbsmedya/goerd/internal/pk"
	"github.com/dbsmedya/goerd/internal/spider"
	"github.com/dbsmedya/goerd/internal/types"
)

// fixture profiles a small shop dataset:
//
//	customers(id, name)  orders(order_id, customer_id, amount)  regions(region_id, label)
func fixture(t *testing.T) (*Metadata, []ind.Pair) {
	t.Helper()

	tables := []types.Table{
		types.NewTable("customers", []types.Row{
			types.RowOf("id", 1, "name", "ann"),
			types.RowOf("id", 2, "name", "bob"),
			types.RowOf("id", 3, "name", "cy"),
		}),
		types.NewTable("orders", []types.Row{
			types.RowOf("order_id", 10, "customer_id", 1, "amount", 1),
			types.RowOf("order_id", 11, "customer_id", 1, "amount", 2),
			types.RowOf("order_id", 12, "customer_id", 2, "amount", 2),
			types.RowOf("order_id", 13, "customer_id", 3, "amount", 1),
		}),
		types.NewTable("regions", []types.Row{
			types.RowOf("region_id", 1, "label", "x"),
			types.RowOf("region_id", 2, "label", "y"),
			types.RowOf("region_id", 3, "label", "z"),
		}),
	}

	idx, err := attribute.NewIndex()
	require.NoError(t, err)
	for _, tbl := range tables {
		for _, a := range attribute.ProfileTable(tbl, attribute.DefaultOptions()) {
			require.NoError(t, idx.Add(a))
		}
	}

	var cols []spider.Column
	idx.Each(func(a *attribute.Attribute) {
		cols = append(cols, spider.NewColumn(a.FullName(), a.Values))
	})
	res, err := spider.Discover(context.Background(), cols)
	require.NoError(t, err)

	md := NewMetadata(idx, pk.Select(idx, pk.Options{}), nil, nil)
	return md, res.Pairs
}

func pair(ref, dep string) ind.Pair {
	return ind.Pair{Reference: ref, Dependent: dep}
}

func run(t *testing.T, stages []string, md *Metadata, pairs []ind.Pair) []ind.Pair {
	t.Helper()
	p, err := Build(stages, nil)
	require.NoError(t, err)
	out, _, err := p.Run(context.Background(), pairs, md)
	require.NoError(t, err)
	return out
}

// ============================================================================
// Individual stages
// ============================================================================

func TestFixture_Candidates(t *testing.T) {
	md, pairs := fixture(t)

	assert.Len(t, pairs, 9)
	assert.Equal(t, "customers.id", md.PrimaryKeys["customers"].FullName)
	assert.Equal(t, "orders.order_id", md.PrimaryKeys["orders"].FullName)
	assert.Equal(t, "regions.region_id", md.PrimaryKeys["regions"].FullName)
}

func TestPrimaryKeyStage(t *testing.T) {
	md, pairs := fixture(t)

	out, err := PrimaryKey().Apply(context.Background(), pairs, md)
	require.NoError(t, err)

	assert.Equal(t, []ind.Pair{
		pair("regions.region_id", "customers.id"),
		pair("customers.id", "orders.amount"),
		pair("regions.region_id", "orders.amount"),
		pair("customers.id", "orders.customer_id"),
		pair("regions.region_id", "orders.customer_id"),
		pair("customers.id", "regions.region_id"),
	}, out)
}

func TestNullStage(t *testing.T) {
	opts := attribute.DefaultOptions()
	idx, err := attribute.NewIndex(
		attribute.New("a", "x", []string{"1", "2"}, opts),
		attribute.New("b", "y", []string{"nan", "nan"}, opts),
		attribute.New("c", "z", nil, opts),
		attribute.New("d", "w", []string{"nan", "1"}, opts),
	)
	require.NoError(t, err)
	md := NewMetadata(idx, pk.Keys{}, nil, nil)

	out, err := Null(DefaultNullToken).Apply(context.Background(), []ind.Pair{
		pair("a.x", "b.y"),
		pair("b.y", "a.x"),
		pair("a.x", "c.z"),
		pair("a.x", "d.w"),
	}, md)
	require.NoError(t, err)

	assert.Equal(t, []ind.Pair{pair("a.x", "d.w")}, out)
}

func TestNameSimilarityStage(t *testing.T) {
	md, pairs := fixture(t)

	out, err := NameSimilarity().Apply(context.Background(), pairs, md)
	require.NoError(t, err)

	// Similarity is symmetric, so both directions of the customer link pass.
	assert.Equal(t, []ind.Pair{
		pair("orders.customer_id", "customers.id"),
		pair("customers.id", "orders.customer_id"),
	}, out)
}

func TestAutoIncrementStage(t *testing.T) {
	md, pairs := fixture(t)

	out, err := AutoIncrement(DefaultAutoIncrementOptions()).Apply(context.Background(), pairs, md)
	require.NoError(t, err)

	for _, p := range out {
		assert.NotEqual(t, "customers.id", p.Dependent)
		assert.NotEqual(t, "regions.region_id", p.Dependent)
	}
	assert.Len(t, out, 5)
}

func TestAutoIncrementStage_WithoutPrimaryKeyRequirement(t *testing.T) {
	md, pairs := fixture(t)

	opts := DefaultAutoIncrementOptions()
	opts.RequirePrimaryKey = false
	out, err := AutoIncrement(opts).Apply(context.Background(), pairs, md)
	require.NoError(t, err)

	// orders.customer_id holds 1..3 as well; orders.amount holds only 1..2.
	assert.Equal(t, []ind.Pair{
		pair("customers.id", "orders.amount"),
		pair("orders.customer_id", "orders.amount"),
		pair("regions.region_id", "orders.amount"),
	}, out)
}

func TestAutoIncrementStage_ReusedAcrossIndexes(t *testing.T) {
	build := func(ids ...string) *Metadata {
		opts := attribute.DefaultOptions()
		idx, err := attribute.NewIndex(
			attribute.New("t", "id", ids, opts),
			attribute.New("u", "ref", []string{"1", "2", "3", "5", "9", "12"}, opts),
		)
		require.NoError(t, err)
		return NewMetadata(idx, pk.Select(idx, pk.Options{}), nil, nil)
	}
	pairs := []ind.Pair{pair("u.ref", "t.id")}
	stage := AutoIncrement(DefaultAutoIncrementOptions())

	out, err := stage.Apply(context.Background(), pairs, build("1", "2", "3"))
	require.NoError(t, err)
	assert.Empty(t, out, "1..3 is a counter")

	// Same stage, same full name, different values.
	out, err = stage.Apply(context.Background(), pairs, build("5", "9", "12"))
	require.NoError(t, err)
	assert.Equal(t, pairs, out)
}

func TestBuild_ZeroAutoIncrementConfig(t *testing.T) {
	md, pairs := fixture(t)

	p, err := Build([]string{StageAutoIncrement}, &config.FiltersConfig{})
	require.NoError(t, err)
	out, _, err := p.Run(context.Background(), pairs, md)
	require.NoError(t, err)
	assert.Len(t, out, 5, "unset require_primary_key keeps the default")

	off := false
	p, err = Build([]string{StageAutoIncrement}, &config.FiltersConfig{
		AutoIncrement: config.AutoIncrementConfig{RequirePrimaryKey: &off},
	})
	require.NoError(t, err)
	out, _, err = p.Run(context.Background(), pairs, md)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestIsSequence(t *testing.T) {
	opts := DefaultAutoIncrementOptions()

	tests := []struct {
		name   string
		values []string
		want   bool
	}{
		{"one based", []string{"3", "1", "2"}, true},
		{"zero based", []string{"0", "1", "2", "3"}, true},
		{"duplicates collapse", []string{"1", "1", "2", "3", "3"}, true},
		{"gap", []string{"1", "2", "4"}, false},
		{"wrong start", []string{"5", "6", "7"}, false},
		{"too short", []string{"1", "2"}, false},
		{"not integers", []string{"1", "2", "x"}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSequence(tt.values, opts))
		})
	}
}

// ============================================================================
// Stage properties
// ============================================================================

func allStages() []Stage {
	return []Stage{PrimaryKey(), Null(DefaultNullToken), NameSimilarity(), AutoIncrement(DefaultAutoIncrementOptions())}
}

func TestStages_NeverAddAndKeepOrder(t *testing.T) {
	md, pairs := fixture(t)

	for _, s := range allStages() {
		out, err := s.Apply(context.Background(), pairs, md)
		require.NoError(t, err, s.Name())

		// out must be an ordered subsequence of pairs
		i := 0
		for _, p := range pairs {
			if i < len(out) && out[i] == p {
				i++
			}
		}
		assert.Equal(t, len(out), i, "stage %s reordered or invented pairs", s.Name())
	}
}

func TestStages_Idempotent(t *testing.T) {
	md, pairs := fixture(t)

	for _, s := range allStages() {
		once, err := s.Apply(context.Background(), pairs, md)
		require.NoError(t, err)
		twice, err := s.Apply(context.Background(), once, md)
		require.NoError(t, err)
		assert.Equal(t, once, twice, s.Name())
	}
}

func TestStages_EmptyInput(t *testing.T) {
	md, _ := fixture(t)

	for _, s := range allStages() {
		out, err := s.Apply(context.Background(), nil, md)
		require.NoError(t, err)
		assert.Empty(t, out, s.Name())
	}
}

// ============================================================================
// Missing attributes
// ============================================================================

func TestMissingAttribute_Abort(t *testing.T) {
	md, _ := fixture(t)

	_, err := PrimaryKey().Apply(context.Background(), []ind.Pair{pair("customers.id", "ghost.col")}, md)

	var missing *MissingAttributeError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ghost.col", missing.Missing)
	assert.Equal(t, StagePrimaryKey, missing.Stage)
	assert.Contains(t, err.Error(), "ghost.col")
}

func TestMissingAttribute_Skip(t *testing.T) {
	md, _ := fixture(t)
	log, logs := logger.NewObserved(zapcore.WarnLevel)
	md.Log = log
	md.OnMissing = Skip

	out, err := PrimaryKey().Apply(context.Background(), []ind.Pair{
		pair("ghost.col", "orders.customer_id"),
		pair("customers.id", "orders.customer_id"),
	}, md)
	require.NoError(t, err)

	assert.Equal(t, []ind.Pair{pair("customers.id", "orders.customer_id")}, out)
	assert.Equal(t, 1, logs.FilterMessage("Skipping unresolvable pair").Len())
}

func TestApply_Cancelled(t *testing.T) {
	md, pairs := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Null(DefaultNullToken).Apply(ctx, pairs, md)
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================================
// Metadata
// ============================================================================

func TestNewMetadata_FromConfig(t *testing.T) {
	cfg := &config.FiltersConfig{OnMissing: "skip"}
	cfg.NameSimilarity.Threshold = 0.5
	cfg.NameSimilarity.Singularize = true

	md := NewMetadata(nil, nil, cfg, nil)
	assert.Equal(t, Skip, md.OnMissing)
	assert.Equal(t, 0.5, md.Threshold)
	assert.NotNil(t, md.Log)
	assert.Equal(t, 0.91, md.Scorer("orders.customer_id", "customers.id"))
}

func TestNewMetadata_Defaults(t *testing.T) {
	md := NewMetadata(nil, nil, nil, nil)
	assert.Equal(t, Abort, md.OnMissing)
	assert.Equal(t, ind.DefaultThreshold, md.Threshold)
	assert.Equal(t, 0.87, md.Scorer("orders.customer_id", "customers.id"))
}
