package pk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goerd/internal/attribute"
	"github.com/dbsmedya/goerd/internal/types"
)

func buildIndex(t *testing.T, tables ...types.Table) *attribute.Index {
	t.Helper()
	idx, err := attribute.NewIndex()
	require.NoError(t, err)
	for _, tbl := range tables {
		for _, a := range attribute.ProfileTable(tbl, attribute.DefaultOptions()) {
			require.NoError(t, idx.Add(a))
		}
	}
	return idx
}

func customersOrders() (types.Table, types.Table) {
	customers := types.NewTable("customers", []types.Row{
		types.RowOf("id", 1, "name", "alice"),
		types.RowOf("id", 2, "name", "bob"),
		types.RowOf("id", 3, "name", "carol"),
	})
	orders := types.NewTable("orders", []types.Row{
		types.RowOf("order_id", 10, "customer_id", 1),
		types.RowOf("order_id", 11, "customer_id", 1),
		types.RowOf("order_id", 12, "customer_id", 2),
	})
	return customers, orders
}

func TestSelect_CustomersOrders(t *testing.T) {
	customers, orders := customersOrders()
	keys := Select(buildIndex(t, customers, orders), Options{})

	require.Len(t, keys, 2)
	assert.Equal(t, "customers.id", keys["customers"].FullName)
	assert.Equal(t, "orders.order_id", keys["orders"].FullName)
	assert.InDelta(t, 5.0, keys["customers"].Score, 0.001)

	assert.True(t, keys.IsPrimaryKey("orders", "orders.order_id"))
	assert.False(t, keys.IsPrimaryKey("orders", "orders.customer_id"))
	assert.Equal(t, []string{"customers", "orders"}, keys.Tables())
}

func TestSelect_TieKeepsFirstSeen(t *testing.T) {
	opts := attribute.DefaultOptions()
	a := attribute.New("t", "x", []string{"1", "2"}, opts)
	b := attribute.New("t", "y", []string{"3", "4"}, opts)
	// Same position, so the scores tie exactly.
	a.Position, b.Position = 0.5, 0.5

	idx, err := attribute.NewIndex(a, b)
	require.NoError(t, err)

	keys := Select(idx, Options{})
	assert.Equal(t, "t.x", keys["t"].FullName)

	idx, err = attribute.NewIndex(b, a)
	require.NoError(t, err)
	keys = Select(idx, Options{})
	assert.Equal(t, "t.y", keys["t"].FullName)
}

func TestSelect_TableWithoutAttributes(t *testing.T) {
	customers, _ := customersOrders()
	empty := types.Table{Name: "empty", Columns: []string{"id"}}

	keys := Select(buildIndex(t, customers, empty), Options{})

	_, ok := keys.Lookup("empty")
	assert.False(t, ok)
	_, ok = keys.Lookup("customers")
	assert.True(t, ok)
}

func TestSelect_DegenerateColumn(t *testing.T) {
	// An all-null first column scores 0+1+1+1+1 = 4 and beats a second column
	// with low uniqueness unless degenerate columns are excluded.
	tbl := types.NewTable("t", []types.Row{
		types.RowOf("ref_id", nil, "code", "A"),
		types.RowOf("ref_id", nil, "code", "A"),
		types.RowOf("ref_id", nil, "code", "B"),
	})
	idx := buildIndex(t, tbl)

	soft := Select(idx, Options{})
	assert.Equal(t, "t.ref_id", soft["t"].FullName)

	hard := Select(idx, Options{ExcludeDegenerate: true})
	assert.Equal(t, "t.code", hard["t"].FullName)
}

func TestSelect_AllDegenerateWithExclusion(t *testing.T) {
	tbl := types.NewTable("t", []types.Row{types.RowOf("a", nil)})
	keys := Select(buildIndex(t, tbl), Options{ExcludeDegenerate: true})
	assert.Empty(t, keys)
}

func TestSelect_Deterministic(t *testing.T) {
	customers, orders := customersOrders()
	first := Select(buildIndex(t, customers, orders), Options{})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Select(buildIndex(t, customers, orders), Options{}))
	}
}
