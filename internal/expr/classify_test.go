package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrest/internal/queryir"
)

func TestClassifier_IsContinuous(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{raw: "id", want: true},
		{raw: "amount", want: true},
		{raw: "created_at", want: true},
		{raw: "shipped_on", want: true},
		{raw: "status", want: false},
		{raw: "lead_time", want: false},
		{raw: "date(created_at)", want: true},
		{raw: "DATE(created_at)", want: true},
		{raw: "date(status)", want: true},
		{raw: "count(amount)", want: false},
		{raw: "frobnicate(amount)", want: false},
		{raw: "count(date(created_at))", want: false},
		{raw: "date(count(created_at))", want: true},
	}

	c := NewClassifier()
	table := ordersTable()
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			e, err := c.Resolve(tt.raw, table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.IsContinuous(e))
		})
	}
}

func TestClassifier_ConfiguredAllowList(t *testing.T) {
	c := NewClassifier("Year", "month")

	e, err := c.Resolve("year(created_at)", ordersTable())
	require.NoError(t, err)
	assert.True(t, c.IsContinuous(e))

	e, err = c.Resolve("date(created_at)", ordersTable())
	require.NoError(t, err)
	assert.False(t, c.IsContinuous(e))

	assert.ElementsMatch(t, []string{"year", "month"}, c.Functions())
}

func TestClassifier_TagsKnownFunctions(t *testing.T) {
	c := NewClassifier()

	e, err := c.Resolve("count(date(created_at))", ordersTable())
	require.NoError(t, err)
	require.Len(t, e.Funcs, 2)
	assert.Equal(t, queryir.FuncOpaque, e.Funcs[0].Kind)
	assert.Equal(t, queryir.FuncKnown, e.Funcs[1].Kind)
}

func TestClassifier_DefaultAllowList(t *testing.T) {
	c := NewClassifier()

	assert.True(t, c.Known("date"))
	assert.True(t, c.Known("Date"))
	assert.False(t, c.Known("count"))
	assert.Equal(t, []string{"date"}, c.Functions())
}
