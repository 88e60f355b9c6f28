package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/expr"
	"github.com/roach88/sqlrest/internal/ir"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

func usersTable() *schema.Table {
	return schema.MustTable("users",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "name", Type: schema.TypeString},
		schema.Column{Name: "age", Type: schema.TypeInteger},
		schema.Column{Name: "signup", Type: schema.TypeDateTime},
	)
}

func compile(t *testing.T, filters map[string]any) queryir.And {
	t.Helper()
	pred, err := Compile(filters, usersTable(), expr.NewClassifier())
	require.NoError(t, err)
	and, ok := pred.(queryir.And)
	require.True(t, ok, "expected And, got %T", pred)
	return and
}

func TestCompile_Equality(t *testing.T) {
	and := compile(t, map[string]any{"name": "Alice"})

	require.Len(t, and.Predicates, 1)
	eq, ok := and.Predicates[0].(queryir.Equals)
	require.True(t, ok)
	assert.Equal(t, "name", eq.Expr.Column.Name)
	assert.Equal(t, ir.String("Alice"), eq.Value)
}

func TestCompile_RangeOnContinuous(t *testing.T) {
	and := compile(t, map[string]any{"age": []any{float64(18), float64(30)}})

	require.Len(t, and.Predicates, 1)
	r, ok := and.Predicates[0].(queryir.Range)
	require.True(t, ok, "expected Range, got %T", and.Predicates[0])
	assert.Equal(t, ir.Int(18), r.Lower)
	assert.Equal(t, ir.Int(30), r.Upper)
}

func TestCompile_RangeThroughAllowListedFunction(t *testing.T) {
	and := compile(t, map[string]any{"date(signup)": []any{"2024-01-01", "2024-02-01"}})

	r, ok := and.Predicates[0].(queryir.Range)
	require.True(t, ok)
	assert.Equal(t, []queryir.Func{{Name: "date", Kind: queryir.FuncKnown}}, r.Expr.Funcs)
}

func TestCompile_MembershipOnCategorical(t *testing.T) {
	and := compile(t, map[string]any{"name": []any{"Alice", "Bob"}})

	or, ok := and.Predicates[0].(queryir.Or)
	require.True(t, ok, "expected Or, got %T", and.Predicates[0])
	require.Len(t, or.Predicates, 2)
	assert.Equal(t, ir.String("Bob"), or.Predicates[1].(queryir.Equals).Value)
}

func TestCompile_MembershipWhenLengthIsNotTwo(t *testing.T) {
	tests := []struct {
		name   string
		values []any
	}{
		{name: "one", values: []any{float64(18)}},
		{name: "three", values: []any{float64(18), float64(30), float64(45)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			and := compile(t, map[string]any{"age": tt.values})
			or, ok := and.Predicates[0].(queryir.Or)
			require.True(t, ok)
			assert.Len(t, or.Predicates, len(tt.values))
		})
	}
}

func TestCompile_EmptyListMatchesNothing(t *testing.T) {
	and := compile(t, map[string]any{"name": []any{}})

	or, ok := and.Predicates[0].(queryir.Or)
	require.True(t, ok)
	assert.Empty(t, or.Predicates)
}

func TestCompile_NonContinuousFunctionIsMembership(t *testing.T) {
	and := compile(t, map[string]any{"count(age)": []any{float64(1), float64(2)}})

	_, ok := and.Predicates[0].(queryir.Or)
	assert.True(t, ok)
}

func TestCompile_EmptyFilters(t *testing.T) {
	assert.Empty(t, compile(t, nil).Predicates)
	assert.Empty(t, compile(t, map[string]any{}).Predicates)
}

func TestCompile_SortedKeys(t *testing.T) {
	and := compile(t, map[string]any{"name": "A", "age": float64(3), "id": float64(1)})

	require.Len(t, and.Predicates, 3)
	var labels []string
	for _, p := range and.Predicates {
		labels = append(labels, p.(queryir.Equals).Expr.Label)
	}
	assert.Equal(t, []string{"age", "id", "name"}, labels)
}

func TestCompile_NullEquality(t *testing.T) {
	and := compile(t, map[string]any{"name": nil})

	eq := and.Predicates[0].(queryir.Equals)
	assert.True(t, ir.IsNull(eq.Value))
}

func TestCompile_TypedSlices(t *testing.T) {
	and := compile(t, map[string]any{
		"age":  []int{18, 30},
		"name": []string{"a", "b", "c"},
	})

	_, isRange := and.Predicates[0].(queryir.Range)
	assert.True(t, isRange)
	_, isOr := and.Predicates[1].(queryir.Or)
	assert.True(t, isOr)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		filters map[string]any
		code apperr.Code
	}{
		{name: "unknown column", filters: map[string]any{"missing": 1}, code: apperr.UnknownColumn},
		{name: "nested object", filters: map[string]any{"name": map[string]any{"$gt": 1}}, code: apperr.InvalidArgument},
		{name: "nested list", filters: map[string]any{"name": []any{[]any{"a"}}}, code: apperr.InvalidArgument},
		{name: "null range bound", filters: map[string]any{"age": []any{nil, float64(3)}}, code: apperr.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.filters, usersTable(), expr.NewClassifier())
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}
