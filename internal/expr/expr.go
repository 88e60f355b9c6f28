// Package expr resolves field expressions against a table schema and
// classifies the result as continuous or categorical.
//
// A field expression is a bare column name, "*", or a single-argument
// function applied to another field expression:
//
//	age
//	*
//	count(distinct(amount))
//	date(created_at)
//
// Function names are not checked here. An unknown function reaches the
// engine and surfaces as UnknownFunction at execution time.
package expr

import (
	"regexp"
	"strings"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

// Wildcard resolves to the first column of the table.
const Wildcard = "*"

var callPattern = regexp.MustCompile(`^\s*(\w+)\((.+?)\)\s*$`)

// Resolve parses a field expression and binds its terminal to a column of
// table. Every function is tagged opaque; use Classifier.Resolve to tag
// known functions.
//
// Returns an UnknownColumn error when the terminal names no column, or when
// the table has no columns and the terminal is "*".
func Resolve(raw string, table *schema.Table) (queryir.Expr, error) {
	var funcs []queryir.Func
	inner := raw
	for {
		m := callPattern.FindStringSubmatch(inner)
		if m == nil {
			break
		}
		funcs = append(funcs, queryir.Func{Name: m[1], Kind: queryir.FuncOpaque})
		inner = m[2]
	}

	terminal := strings.TrimSpace(inner)

	var (
		col schema.Column
		ok  bool
	)
	if terminal == Wildcard {
		col, ok = table.First()
	} else {
		col, ok = table.Lookup(terminal)
	}
	if !ok {
		return queryir.Expr{}, apperr.NewUnknownColumn(table.Name, terminal)
	}

	return queryir.Expr{
		Label:  raw,
		Funcs:  funcs,
		Column: col,
	}, nil
}

// ResolveAll resolves each expression in order, stopping at the first error.
func ResolveAll(raws []string, table *schema.Table) ([]queryir.Expr, error) {
	out := make([]queryir.Expr, 0, len(raws))
	for _, raw := range raws {
		e, err := Resolve(raw, table)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
