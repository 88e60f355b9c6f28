package queryir

import (
	"github.com/roach88/sqlrest/internal/ir"
	"github.com/roach88/sqlrest/internal/schema"
)

// FuncKind tags a function application.
type FuncKind int

const (
	// FuncOpaque is forwarded verbatim to the engine. Its return type is
	// unknown to the query layer.
	FuncOpaque FuncKind = iota

	// FuncKnown is a function the type classifier has an entry for.
	FuncKnown
)

// String returns "known" or "opaque".
func (k FuncKind) String() string {
	if k == FuncKnown {
		return "known"
	}
	return "opaque"
}

// Func is one function application in an Expr.
type Func struct {
	Name string
	Kind FuncKind
}

// Expr is a resolved field expression.
//
// Example: "count(distinct(amount))" resolves to
//
//	Expr{
//	  Label:  "count(distinct(amount))",
//	  Funcs:  []Func{{Name: "count"}, {Name: "distinct"}},
//	  Column: schema.Column{Name: "amount", Type: schema.TypeFloat},
//	}
//
// Funcs are ordered outermost first; rendering wraps the column innermost
// first, so the last element is applied to the column directly.
type Expr struct {
	// Label is the original expression text. Result rows are keyed by it.
	Label string

	// Funcs lists function applications, outermost first.
	Funcs []Func

	// Column is the terminal column reference.
	Column schema.Column
}

// IsBare reports whether the expression is a plain column reference.
func (e Expr) IsBare() bool {
	return len(e.Funcs) == 0
}

// Outermost returns the outermost function application, if any.
func (e Expr) Outermost() (Func, bool) {
	if len(e.Funcs) == 0 {
		return Func{}, false
	}
	return e.Funcs[0], true
}

// ColumnExpr returns the bare expression for a column, labelled by its name.
func ColumnExpr(c schema.Column) Expr {
	return Expr{Label: c.Name, Column: c}
}

// Query represents a statement in the IR.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Page slices an ordered result set.
type Page struct {
	Offset int
	Limit  int
}

// Order sorts by an expression.
type Order struct {
	Expr       Expr
	Descending bool
}

// Select reads rows.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter>
//	  GROUP BY <group_by> ORDER BY <order_by> LIMIT <limit> OFFSET <offset>
//
// Columns are labelled with Expr.Label. Filter nil means no restriction;
// OrderBy nil leaves row order to the engine; Page nil returns every row.
type Select struct {
	From    string
	Columns []Expr
	Filter  Predicate
	GroupBy []Expr
	OrderBy *Order
	Page    *Page
}

func (Select) queryNode() {}

// Insert writes rows. Every row holds one value per entry in Columns.
type Insert struct {
	Into    string
	Columns []string
	Rows    [][]ir.Value
}

func (Insert) queryNode() {}

// Assignment sets one column in an Update.
type Assignment struct {
	Column string
	Value  ir.Value
}

// Update modifies every row matching Filter.
type Update struct {
	Table  string
	Set    []Assignment
	Filter Predicate
}

func (Update) queryNode() {}

// Delete removes every row matching Filter.
type Delete struct {
	From   string
	Filter Predicate
}

func (Delete) queryNode() {}

// Equals represents expr = value. A null value means expr IS NULL.
type Equals struct {
	Expr  Expr
	Value ir.Value
}

func (Equals) predicateNode() {}

// Range represents the half-open interval lower <= expr < upper.
type Range struct {
	Expr  Expr
	Lower ir.Value
	Upper ir.Value
}

func (Range) predicateNode() {}

// Or represents a disjunction. An empty Or matches nothing.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// And represents a conjunction. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
