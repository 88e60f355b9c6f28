package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/sqlrest/internal/ir"
	"github.com/roach88/sqlrest/internal/queryir"
)

// SQLCompiler compiles query plans to parameterized SQL for one dialect.
//
// CRITICAL: All literal values are parameterized, never interpolated.
// Identifiers are always quoted. Function names are emitted verbatim; the
// expression parser only accepts \w+ names, so they cannot carry syntax.
//
// Rows are ordered only when the plan carries an OrderBy.
type SQLCompiler struct {
	dialect Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{dialect: d}
}

// Dialect returns the compiler's dialect.
func (c *SQLCompiler) Dialect() Dialect {
	return c.dialect
}

// Compile converts a query plan to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	b := &builder{dialect: c.dialect}
	var err error
	switch query := q.(type) {
	case queryir.Select:
		err = b.selectStmt(query)
	case *queryir.Select:
		err = b.selectStmt(*query)
	case queryir.Insert:
		err = b.insertStmt(query)
	case *queryir.Insert:
		err = b.insertStmt(*query)
	case queryir.Update:
		err = b.updateStmt(query)
	case *queryir.Update:
		err = b.updateStmt(*query)
	case queryir.Delete:
		err = b.deleteStmt(query)
	case *queryir.Delete:
		err = b.deleteStmt(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
	if err != nil {
		return "", nil, err
	}
	return b.sb.String(), b.params, nil
}

// builder accumulates SQL text and parameters for one statement.
type builder struct {
	dialect Dialect
	sb      strings.Builder
	params  []any
}

func (b *builder) write(parts ...string) {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
}

// bind appends a parameter and returns its placeholder.
// CRITICAL: Value is NEVER interpolated - always parameterized.
func (b *builder) bind(v ir.Value) (string, error) {
	param, err := ir.Param(v)
	if err != nil {
		return "", fmt.Errorf("convert value: %w", err)
	}
	b.params = append(b.params, param)
	return b.dialect.Placeholder(len(b.params)), nil
}

func (b *builder) ident(name string) string {
	return b.dialect.QuoteIdent(name)
}

// expr renders a resolved expression, applying functions innermost first.
// Example: count(distinct(amount)) → count(distinct("amount"))
func (b *builder) expr(e queryir.Expr) string {
	out := b.ident(e.Column.Name)
	for i := len(e.Funcs) - 1; i >= 0; i-- {
		out = e.Funcs[i].Name + "(" + out + ")"
	}
	return out
}

// projection renders an expression with its label as alias. Bare columns
// whose label is the column name need no alias.
func (b *builder) projection(e queryir.Expr) string {
	if e.IsBare() && e.Label == e.Column.Name {
		return b.expr(e)
	}
	return b.expr(e) + " AS " + b.ident(e.Label)
}

func (b *builder) selectStmt(q queryir.Select) error {
	if len(q.Columns) == 0 {
		return fmt.Errorf("select from %q: no columns", q.From)
	}

	cols := make([]string, len(q.Columns))
	for i, e := range q.Columns {
		cols[i] = b.projection(e)
	}
	b.write("SELECT ", strings.Join(cols, ", "), " FROM ", b.ident(q.From))

	if err := b.where(q.Filter); err != nil {
		return err
	}

	if len(q.GroupBy) > 0 {
		groups := make([]string, len(q.GroupBy))
		for i, e := range q.GroupBy {
			groups[i] = b.expr(e)
		}
		b.write(" GROUP BY ", strings.Join(groups, ", "))
	}

	if q.OrderBy != nil {
		dir := " ASC"
		if q.OrderBy.Descending {
			dir = " DESC"
		}
		b.write(" ORDER BY ", b.expr(q.OrderBy.Expr), dir)
	}

	if q.Page != nil {
		b.write(" LIMIT ", strconv.Itoa(q.Page.Limit), " OFFSET ", strconv.Itoa(q.Page.Offset))
	}
	return nil
}

func (b *builder) insertStmt(q queryir.Insert) error {
	if len(q.Columns) == 0 || len(q.Rows) == 0 {
		return fmt.Errorf("insert into %q: nothing to insert", q.Into)
	}

	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		cols[i] = b.ident(c)
	}
	b.write("INSERT INTO ", b.ident(q.Into), " (", strings.Join(cols, ", "), ") VALUES ")

	for r, row := range q.Rows {
		if len(row) != len(q.Columns) {
			return fmt.Errorf("insert into %q: row %d has %d values, want %d", q.Into, r, len(row), len(q.Columns))
		}
		if r > 0 {
			b.write(", ")
		}
		marks := make([]string, len(row))
		for i, v := range row {
			ph, err := b.bind(v)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", r, q.Columns[i], err)
			}
			marks[i] = ph
		}
		b.write("(", strings.Join(marks, ", "), ")")
	}
	return nil
}

func (b *builder) updateStmt(q queryir.Update) error {
	if len(q.Set) == 0 {
		return fmt.Errorf("update %q: no assignments", q.Table)
	}

	sets := make([]string, len(q.Set))
	for i, a := range q.Set {
		ph, err := b.bind(a.Value)
		if err != nil {
			return fmt.Errorf("column %q: %w", a.Column, err)
		}
		sets[i] = b.ident(a.Column) + " = " + ph
	}
	b.write("UPDATE ", b.ident(q.Table), " SET ", strings.Join(sets, ", "))
	return b.where(q.Filter)
}

func (b *builder) deleteStmt(q queryir.Delete) error {
	b.write("DELETE FROM ", b.ident(q.From))
	return b.where(q.Filter)
}

// where appends a WHERE clause unless the predicate matches every row.
func (b *builder) where(p queryir.Predicate) error {
	if isTautology(p) {
		return nil
	}
	sql, err := b.predicate(p)
	if err != nil {
		return fmt.Errorf("compile filter: %w", err)
	}
	b.write(" WHERE ", sql)
	return nil
}

// predicate compiles a predicate to a WHERE clause fragment.
func (b *builder) predicate(p queryir.Predicate) (string, error) {
	if p == nil {
		return "1 = 1", nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return b.equals(pred)
	case *queryir.Equals:
		return b.equals(*pred)
	case queryir.Range:
		return b.rangePred(pred)
	case *queryir.Range:
		return b.rangePred(*pred)
	case queryir.Or:
		return b.junction(pred.Predicates, " OR ", "1 = 0")
	case *queryir.Or:
		return b.junction(pred.Predicates, " OR ", "1 = 0")
	case queryir.And:
		return b.junction(pred.Predicates, " AND ", "1 = 1")
	case *queryir.And:
		return b.junction(pred.Predicates, " AND ", "1 = 1")
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// equals compiles "expr = ?", or "expr IS NULL" for a null value.
func (b *builder) equals(eq queryir.Equals) (string, error) {
	if ir.IsNull(eq.Value) {
		return b.expr(eq.Expr) + " IS NULL", nil
	}
	ph, err := b.bind(eq.Value)
	if err != nil {
		return "", err
	}
	return b.expr(eq.Expr) + " = " + ph, nil
}

// rangePred compiles the half-open interval "(expr >= ? AND expr < ?)".
func (b *builder) rangePred(r queryir.Range) (string, error) {
	e := b.expr(r.Expr)
	lo, err := b.bind(r.Lower)
	if err != nil {
		return "", err
	}
	hi, err := b.bind(r.Upper)
	if err != nil {
		return "", err
	}
	return "(" + e + " >= " + lo + " AND " + e + " < " + hi + ")", nil
}

// junction joins sub-predicates with op. An empty list compiles to empty.
func (b *builder) junction(preds []queryir.Predicate, op, empty string) (string, error) {
	if len(preds) == 0 {
		return empty, nil
	}
	if len(preds) == 1 {
		return b.predicate(preds[0])
	}

	parts := make([]string, len(preds))
	for i, p := range preds {
		sql, err := b.predicate(p)
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

func isTautology(p queryir.Predicate) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case queryir.And:
		return len(pred.Predicates) == 0
	case *queryir.And:
		return pred == nil || len(pred.Predicates) == 0
	default:
		return false
	}
}
