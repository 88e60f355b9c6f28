package queryir

import (
	"fmt"
)

// ValidationResult reports structural problems in a query.
//
// A query that fails validation would either be rejected by the engine or
// silently produce a statement with different semantics than requested
// (for example an Insert whose rows disagree on width).
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems lists every structural problem found.
	Problems []string
}

// Err returns nil for a valid result, otherwise an error carrying the first
// problem.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	if len(r.Problems) == 1 {
		return fmt.Errorf("invalid query: %s", r.Problems[0])
	}
	return fmt.Errorf("invalid query: %s (and %d more)", r.Problems[0], len(r.Problems)-1)
}

// Validate checks a query for structural consistency.
//
// Rules:
//  1. Every statement names a table
//  2. Select has at least one column; Insert has at least one column and row
//  3. Insert rows match the column count
//  4. Update sets at least one column
//  5. Expressions reference a named column; function names are non-empty
//  6. Range bounds are both present
//  7. Page offset and limit are non-negative, limit is positive
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		problems: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Insert:
		v.validateInsert(query)
	case *Insert:
		v.validateInsert(*query)
	case Update:
		v.validateUpdate(query)
	case *Update:
		v.validateUpdate(*query)
	case Delete:
		v.validateDelete(query)
	case *Delete:
		v.validateDelete(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addProblem("select: empty table name")
	}
	if len(sel.Columns) == 0 {
		v.addProblem("select: no columns")
	}
	for _, e := range sel.Columns {
		v.validateExpr("select", e)
	}
	for _, e := range sel.GroupBy {
		v.validateExpr("group by", e)
	}
	if sel.OrderBy != nil {
		v.validateExpr("order by", sel.OrderBy.Expr)
	}
	if sel.Page != nil {
		if sel.Page.Offset < 0 {
			v.addProblem("page: negative offset %d", sel.Page.Offset)
		}
		if sel.Page.Limit <= 0 {
			v.addProblem("page: limit must be positive, got %d", sel.Page.Limit)
		}
	}
	v.validatePredicate(sel.Filter)
}

func (v *validator) validateInsert(ins Insert) {
	if ins.Into == "" {
		v.addProblem("insert: empty table name")
	}
	if len(ins.Columns) == 0 {
		v.addProblem("insert: no columns")
	}
	if len(ins.Rows) == 0 {
		v.addProblem("insert: no rows")
	}
	for i, row := range ins.Rows {
		if len(row) != len(ins.Columns) {
			v.addProblem("insert: row %d has %d values, want %d", i, len(row), len(ins.Columns))
		}
	}
}

func (v *validator) validateUpdate(upd Update) {
	if upd.Table == "" {
		v.addProblem("update: empty table name")
	}
	if len(upd.Set) == 0 {
		v.addProblem("update: no assignments")
	}
	for _, a := range upd.Set {
		if a.Column == "" {
			v.addProblem("update: assignment with empty column name")
		}
	}
	v.validatePredicate(upd.Filter)
}

func (v *validator) validateDelete(del Delete) {
	if del.From == "" {
		v.addProblem("delete: empty table name")
	}
	v.validatePredicate(del.Filter)
}

func (v *validator) validateExpr(where string, e Expr) {
	if e.Column.Name == "" {
		v.addProblem("%s: expression %q has no column", where, e.Label)
	}
	for _, f := range e.Funcs {
		if f.Name == "" {
			v.addProblem("%s: expression %q has an empty function name", where, e.Label)
		}
	}
}

func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil predicates are valid (no filter)
	}

	switch pred := p.(type) {
	case Equals:
		v.validateExpr("filter", pred.Expr)
	case *Equals:
		v.validateExpr("filter", pred.Expr)
	case Range:
		v.validateRange(pred)
	case *Range:
		v.validateRange(*pred)
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateRange(r Range) {
	v.validateExpr("filter", r.Expr)
	if r.Lower == nil || r.Upper == nil {
		v.addProblem("filter: range on %q needs both bounds", r.Expr.Label)
	}
}
