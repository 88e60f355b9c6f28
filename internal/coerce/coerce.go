// Package coerce converts externally supplied row values into the storage
// type of their column.
//
// Rows arrive from JSON or the command line, so temporal values are usually
// strings. Date and datetime columns parse them; every other column passes
// its value through unchanged. Interval columns are passed through as well,
// so a string interval reaches the engine as text.
package coerce

import (
	"fmt"
	"sort"
	"time"

	"github.com/araddon/dateparse"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/ir"
	"github.com/roach88/sqlrest/internal/schema"
)

// Row is a coerced row keyed by column name.
type Row map[string]ir.Value

// Columns returns the row's column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Coerce converts every value of row to its column's storage type.
//
// Temporal strings are parsed in UTC. Strings without a time zone are taken
// to be UTC.
//
// Errors:
//   - UnknownColumn when a key names no column
//   - InvalidTemporalValue when a date or datetime value cannot be parsed
//   - InvalidArgument when a value is not a scalar
func Coerce(row map[string]any, table *schema.Table) (Row, error) {
	out := make(Row, len(row))
	for _, key := range sortedKeys(row) {
		col, ok := table.Lookup(key)
		if !ok {
			return nil, apperr.NewUnknownColumn(table.Name, key)
		}

		v, err := Value(row[key], col)
		if err != nil {
			if apperr.CodeOf(err) == apperr.InvalidTemporalValue {
				return nil, apperr.NewInvalidTemporal(table.Name, col.Name, row[key], err)
			}
			return nil, apperr.NewInvalidArgument("column %q: %v", col.Name, err)
		}
		out[key] = v
	}
	return out, nil
}

// CoerceAll coerces every row, stopping at the first failure. The error
// names the failing row index.
func CoerceAll(rows []map[string]any, table *schema.Table) ([]Row, error) {
	out := make([]Row, len(rows))
	for i, row := range rows {
		r, err := Coerce(row, table)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// Value converts a single value for col. Null always passes through.
func Value(raw any, col schema.Column) (ir.Value, error) {
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, err
	}
	if ir.IsNull(v) {
		return ir.Null{}, nil
	}

	switch col.Type {
	case schema.TypeDate:
		t, err := parseTemporal(v)
		if err != nil {
			return nil, err
		}
		return ir.DateOf(t), nil
	case schema.TypeDateTime:
		t, err := parseTemporal(v)
		if err != nil {
			return nil, err
		}
		return ir.DateTime(t), nil
	default:
		return v, nil
	}
}

func parseTemporal(v ir.Value) (time.Time, error) {
	switch val := v.(type) {
	case ir.Date:
		return val.Time(), nil
	case ir.DateTime:
		return val.Time(), nil
	case ir.String:
		t, err := dateparse.ParseIn(string(val), time.UTC)
		if err != nil {
			return time.Time{}, temporalError(err)
		}
		return t, nil
	default:
		return time.Time{}, temporalError(fmt.Errorf("expected a date string, got %T", v))
	}
}

func temporalError(err error) error {
	return &apperr.Error{
		Code:    apperr.InvalidTemporalValue,
		Message: "unparseable temporal value",
		Err:     err,
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
