package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

func ordersTable() *schema.Table {
	return schema.MustTable("orders",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "amount", Type: schema.TypeFloat},
		schema.Column{Name: "status", Type: schema.TypeString},
		schema.Column{Name: "created_at", Type: schema.TypeDateTime},
		schema.Column{Name: "shipped_on", Type: schema.TypeDate},
		schema.Column{Name: "lead_time", Type: schema.TypeInterval},
	)
}

func funcNames(e queryir.Expr) []string {
	names := make([]string, 0, len(e.Funcs))
	for _, f := range e.Funcs {
		names = append(names, f.Name)
	}
	return names
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		funcs  []string
		column string
	}{
		{name: "bare column", raw: "amount", funcs: []string{}, column: "amount"},
		{name: "wildcard", raw: "*", funcs: []string{}, column: "id"},
		{name: "nested functions", raw: "count(distinct(amount))", funcs: []string{"count", "distinct"}, column: "amount"},
		{name: "wildcard under function", raw: "count(*)", funcs: []string{"count"}, column: "id"},
		{name: "surrounding whitespace", raw: "  date(created_at)  ", funcs: []string{"date"}, column: "created_at"},
		{name: "inner whitespace", raw: "sum( amount )", funcs: []string{"sum"}, column: "amount"},
	}

	table := ordersTable()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Resolve(tt.raw, table)
			require.NoError(t, err)

			assert.Equal(t, tt.funcs, funcNames(e))
			assert.Equal(t, tt.column, e.Column.Name)
			assert.Equal(t, tt.raw, e.Label)
			for _, f := range e.Funcs {
				assert.Equal(t, queryir.FuncOpaque, f.Kind)
			}
		})
	}
}

func TestResolve_UnknownColumn(t *testing.T) {
	tests := []string{"missing", "count(missing)", "Amount", ""}

	table := ordersTable()
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := Resolve(raw, table)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.UnknownColumn))
		})
	}
}

func TestResolve_WildcardOnEmptyTable(t *testing.T) {
	_, err := Resolve("*", schema.MustTable("empty"))

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.UnknownColumn))
}

func TestResolve_UnknownFunctionPassesThrough(t *testing.T) {
	e, err := Resolve("frobnicate(amount)", ordersTable())

	require.NoError(t, err)
	assert.Equal(t, []string{"frobnicate"}, funcNames(e))
}

func TestResolveAll(t *testing.T) {
	exprs, err := ResolveAll([]string{"status", "sum(amount)"}, ordersTable())
	require.NoError(t, err)
	require.Len(t, exprs, 2)
	assert.Equal(t, "status", exprs[0].Label)

	_, err = ResolveAll([]string{"status", "nope"}, ordersTable())
	assert.True(t, apperr.Is(err, apperr.UnknownColumn))
}
