package expr

import (
	"strings"

	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

// DefaultContinuousFunctions is the allow-list used when none is configured.
// Most functions do not preserve their argument's type, so only functions
// known to return a continuous value are listed.
var DefaultContinuousFunctions = []string{"date"}

// Classifier decides whether a resolved expression is continuous, meaning a
// two-element filter list on it is a range rather than a membership test.
//
// A Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	continuous map[string]struct{}
}

// NewClassifier returns a Classifier whose allow-list holds the given
// function names, compared case-insensitively. With no names it uses
// DefaultContinuousFunctions.
func NewClassifier(funcs ...string) *Classifier {
	if len(funcs) == 0 {
		funcs = DefaultContinuousFunctions
	}
	c := &Classifier{continuous: make(map[string]struct{}, len(funcs))}
	for _, f := range funcs {
		c.continuous[strings.ToLower(f)] = struct{}{}
	}
	return c
}

// Known reports whether name is in the allow-list.
func (c *Classifier) Known(name string) bool {
	_, ok := c.continuous[strings.ToLower(name)]
	return ok
}

// Functions returns the allow-list in no particular order.
func (c *Classifier) Functions() []string {
	out := make([]string, 0, len(c.continuous))
	for f := range c.continuous {
		out = append(out, f)
	}
	return out
}

// Resolve is Resolve with allow-listed functions tagged FuncKnown.
func (c *Classifier) Resolve(raw string, table *schema.Table) (queryir.Expr, error) {
	e, err := Resolve(raw, table)
	if err != nil {
		return e, err
	}
	for i, f := range e.Funcs {
		if c.Known(f.Name) {
			e.Funcs[i].Kind = queryir.FuncKnown
		}
	}
	return e, nil
}

// ResolveAll is ResolveAll with allow-listed functions tagged FuncKnown.
func (c *Classifier) ResolveAll(raws []string, table *schema.Table) ([]queryir.Expr, error) {
	out := make([]queryir.Expr, 0, len(raws))
	for _, raw := range raws {
		e, err := c.Resolve(raw, table)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// IsContinuous reports whether e supports range queries.
//
// A bare column is continuous when its type is numeric or date/time. With at
// least one function applied, only the outermost function decides: it must
// be in the allow-list. The column type is ignored in that case.
func (c *Classifier) IsContinuous(e queryir.Expr) bool {
	outer, ok := e.Outermost()
	if !ok {
		return e.Column.Type.Continuous()
	}
	return c.Known(outer.Name)
}
