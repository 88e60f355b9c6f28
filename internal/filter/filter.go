// Package filter compiles filter objects into predicate trees.
//
// A filter object maps field expressions to a scalar or a list of scalars:
//
//	{"status": "active"}                       status = 'active'
//	{"age": [18, 30]}                          age >= 18 AND age < 30
//	{"status": ["active", "pending"]}          status = 'active' OR status = 'pending'
//	{"age": [18, 30, 45]}                      age = 18 OR age = 30 OR age = 45
//	{"date(created_at)": ["2024-01-01", "2024-02-01"]}
//
// A two-element list is a range only when the expression is continuous (see
// expr.Classifier). Ranges are half-open: the upper bound is excluded.
package filter

import (
	"fmt"
	"sort"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/expr"
	"github.com/roach88/sqlrest/internal/ir"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

// Compile turns a filter object into an And of one clause per key.
//
// Keys are compiled in sorted order. An empty or nil object yields an empty
// And, which matches every row.
//
// Errors:
//   - UnknownColumn when a key does not resolve
//   - InvalidArgument when a value is not a scalar or list of scalars, or a
//     range bound is null
func Compile(filters map[string]any, table *schema.Table, c *expr.Classifier) (queryir.Predicate, error) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]queryir.Predicate, 0, len(keys))
	for _, key := range keys {
		e, err := c.Resolve(key, table)
		if err != nil {
			return nil, err
		}

		clause, err := compileClause(e, filters[key], c)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	return queryir.And{Predicates: clauses}, nil
}

func compileClause(e queryir.Expr, raw any, c *expr.Classifier) (queryir.Predicate, error) {
	list, isList, err := asList(raw)
	if err != nil {
		return nil, apperr.NewInvalidArgument("filter %q: %v", e.Label, err)
	}

	if !isList {
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, apperr.NewInvalidArgument("filter %q: %v", e.Label, err)
		}
		return queryir.Equals{Expr: e, Value: v}, nil
	}

	if len(list) == 2 && c.IsContinuous(e) {
		if ir.IsNull(list[0]) || ir.IsNull(list[1]) {
			return nil, apperr.NewInvalidArgument("filter %q: range bounds must not be null", e.Label)
		}
		return queryir.Range{Expr: e, Lower: list[0], Upper: list[1]}, nil
	}

	alts := make([]queryir.Predicate, len(list))
	for i, v := range list {
		alts[i] = queryir.Equals{Expr: e, Value: v}
	}
	return queryir.Or{Predicates: alts}, nil
}

// asList converts slice values to scalar Values. The second result is false
// when raw is not a slice.
func asList(raw any) ([]ir.Value, bool, error) {
	switch vals := raw.(type) {
	case []any:
		out, err := ir.FromAnySlice(vals)
		return out, true, err
	case []ir.Value:
		return vals, true, nil
	case []string:
		out := make([]ir.Value, len(vals))
		for i, s := range vals {
			out[i] = ir.String(s)
		}
		return out, true, nil
	case []int:
		out := make([]ir.Value, len(vals))
		for i, n := range vals {
			out[i] = ir.Int(n)
		}
		return out, true, nil
	case []int64:
		out := make([]ir.Value, len(vals))
		for i, n := range vals {
			out[i] = ir.Int(n)
		}
		return out, true, nil
	case []float64:
		out := make([]ir.Value, len(vals))
		for i, f := range vals {
			out[i] = ir.Float(f)
		}
		return out, true, nil
	case map[string]any:
		return nil, false, fmt.Errorf("nested object is not a filter value")
	default:
		return nil, false, nil
	}
}
