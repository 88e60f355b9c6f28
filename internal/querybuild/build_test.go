package querybuild

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/coerce"
	"github.com/roach88/sqlrest/internal/ir"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

func usersTable() *schema.Table {
	return schema.MustTable("users",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "name", Type: schema.TypeString},
		schema.Column{Name: "age", Type: schema.TypeInteger},
	)
}

func newBuilder() *Builder {
	return New(nil, Options{})
}

func labels(exprs []queryir.Expr) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = e.Label
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		want     queryir.Page
	}{
		{name: "defaults", page: 0, pageSize: 0, want: queryir.Page{Offset: 0, Limit: 100}},
		{name: "first page", page: 0, pageSize: 100, want: queryir.Page{Offset: 0, Limit: 100}},
		{name: "third page of 50", page: 2, pageSize: 50, want: queryir.Page{Offset: 100, Limit: 50}},
		{name: "capped", page: 1, pageSize: 50000, want: queryir.Page{Offset: 10000, Limit: 10000}},
	}

	b := newBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Paginate(tt.page, tt.pageSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaginate_Negative(t *testing.T) {
	b := newBuilder()

	_, err := b.Paginate(-1, 10)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = b.Paginate(0, -10)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestPaginate_OffsetOverflow(t *testing.T) {
	b := newBuilder()

	_, err := b.Paginate(math.MaxInt/100+1, 100)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = b.Paginate(math.MaxInt, 0)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	got, err := b.Paginate(math.MaxInt/100, 100)
	require.NoError(t, err)
	assert.Equal(t, (math.MaxInt/100)*100, got.Offset)
}

func TestPaginate_ConfiguredSizes(t *testing.T) {
	b := New(nil, Options{DefaultPageSize: 25, MaxPageSize: 40})

	got, err := b.Paginate(1, 0)
	require.NoError(t, err)
	assert.Equal(t, queryir.Page{Offset: 25, Limit: 25}, got)

	got, err = b.Paginate(0, 100)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Limit)
}

func TestSelect_AllColumns(t *testing.T) {
	sel, err := newBuilder().Select(usersTable(), SelectRequest{})
	require.NoError(t, err)

	assert.Equal(t, "users", sel.From)
	assert.Equal(t, []string{"id", "name", "age"}, labels(sel.Columns))
	assert.Nil(t, sel.OrderBy)
	assert.Nil(t, sel.GroupBy)
	assert.Equal(t, &queryir.Page{Offset: 0, Limit: 100}, sel.Page)
	assert.Equal(t, queryir.And{Predicates: []queryir.Predicate{}}, sel.Filter)
}

func TestSelect_ColumnsFiltersAndOrder(t *testing.T) {
	sel, err := newBuilder().Select(usersTable(), SelectRequest{
		Columns: []string{"name", "count(age)"},
		Filters: map[string]any{"age": []any{float64(18), float64(30)}},
		Window:  Window{OrderBy: "age", Direction: "DESCENDING", Page: 1, PageSize: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "count(age)"}, labels(sel.Columns))
	require.NotNil(t, sel.OrderBy)
	assert.True(t, sel.OrderBy.Descending)
	assert.Equal(t, "age", sel.OrderBy.Expr.Column.Name)
	assert.Equal(t, &queryir.Page{Offset: 10, Limit: 10}, sel.Page)

	and := sel.Filter.(queryir.And)
	_, isRange := and.Predicates[0].(queryir.Range)
	assert.True(t, isRange)
}

func TestSelect_DirectionOtherThanDescendingIsAscending(t *testing.T) {
	for _, dir := range []string{"", "ascending", "desc", "down"} {
		sel, err := newBuilder().Select(usersTable(), SelectRequest{
			Window: Window{OrderBy: "age", Direction: dir},
		})
		require.NoError(t, err)
		assert.False(t, sel.OrderBy.Descending, dir)
	}
}

func TestSelect_UnknownColumn(t *testing.T) {
	b := newBuilder()

	_, err := b.Select(usersTable(), SelectRequest{Columns: []string{"nope"}})
	assert.True(t, apperr.Is(err, apperr.UnknownColumn))

	_, err = b.Select(usersTable(), SelectRequest{Window: Window{OrderBy: "nope"}})
	assert.True(t, apperr.Is(err, apperr.UnknownColumn))

	_, err = b.Select(usersTable(), SelectRequest{Filters: map[string]any{"nope": 1}})
	assert.True(t, apperr.Is(err, apperr.UnknownColumn))
}

func TestAggregate_DefaultCount(t *testing.T) {
	sel, err := newBuilder().Aggregate(usersTable(), AggregateRequest{GroupBy: []string{"age"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"count(*)", "age"}, labels(sel.Columns))
	assert.Equal(t, []string{"age"}, labels(sel.GroupBy))
	assert.Equal(t, "id", sel.Columns[0].Column.Name)
}

func TestAggregate_ExplicitAggregates(t *testing.T) {
	sel, err := newBuilder().Aggregate(usersTable(), AggregateRequest{
		GroupBy:   []string{"name", "age"},
		Aggregate: []string{"max(age)", "count(distinct(id))"},
		Window:    Window{OrderBy: "max(age)"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"max(age)", "count(distinct(id))", "name", "age"}, labels(sel.Columns))
	assert.Equal(t, "max(age)", sel.OrderBy.Expr.Label)
}

func TestAggregate_NoGroupBy(t *testing.T) {
	sel, err := newBuilder().Aggregate(usersTable(), AggregateRequest{})
	require.NoError(t, err)

	assert.Nil(t, sel.GroupBy)
	assert.Equal(t, []string{"count(*)"}, labels(sel.Columns))
}

func TestCount(t *testing.T) {
	sel, err := newBuilder().Count(usersTable(), map[string]any{"name": "Alice"})
	require.NoError(t, err)

	require.Len(t, sel.Columns, 1)
	assert.Equal(t, "count(*)", sel.Columns[0].Label)
	assert.Equal(t, "id", sel.Columns[0].Column.Name)
	assert.Nil(t, sel.Page)
}

func TestInsert_GroupsBySignature(t *testing.T) {
	rows := []coerce.Row{
		{"name": ir.String("Alice"), "age": ir.Int(30)},
		{"name": ir.String("Bob")},
		{"age": ir.Int(40), "name": ir.String("Carol")},
	}

	plans, err := newBuilder().Insert(usersTable(), rows)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, []string{"age", "name"}, plans[0].Columns)
	assert.Equal(t, [][]ir.Value{
		{ir.Int(30), ir.String("Alice")},
		{ir.Int(40), ir.String("Carol")},
	}, plans[0].Rows)

	assert.Equal(t, []string{"name"}, plans[1].Columns)
	assert.Len(t, plans[1].Rows, 1)
}

func TestInsert_Empty(t *testing.T) {
	_, err := newBuilder().Insert(usersTable(), nil)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = newBuilder().Insert(usersTable(), []coerce.Row{{}})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestUpdate(t *testing.T) {
	upd, err := newBuilder().Update(usersTable(),
		map[string]any{"name": "Alice"},
		coerce.Row{"name": ir.String("Alicia"), "age": ir.Int(31)},
	)
	require.NoError(t, err)

	assert.Equal(t, []queryir.Assignment{
		{Column: "age", Value: ir.Int(31)},
		{Column: "name", Value: ir.String("Alicia")},
	}, upd.Set)
	assert.NotNil(t, upd.Filter)
}

func TestUpdate_NoValues(t *testing.T) {
	_, err := newBuilder().Update(usersTable(), nil, coerce.Row{})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestDelete(t *testing.T) {
	del, err := newBuilder().Delete(usersTable(), map[string]any{"age": float64(3)})
	require.NoError(t, err)

	assert.Equal(t, "users", del.From)
	assert.Len(t, del.Filter.(queryir.And).Predicates, 1)
}
