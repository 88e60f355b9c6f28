// Package queryir provides the intermediate representation between the
// request-level compilers (field expressions, filter objects, row payloads)
// and the SQL backends.
//
// ARCHITECTURE:
//
//	[field expression] ─┐
//	[filter object]     ├→ [Query IR] → [SQL compiler (sqlite, mysql, postgres, duckdb)]
//	[row payload]      ─┘
//
// The IR is dialect-free. It names columns and functions but never quotes
// them, and carries literal values as ir.Value so backends parameterise
// every literal.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case Select, *Select:
//	case Insert, *Insert:
//	case Update, *Update:
//	case Delete, *Delete:
//	}
//
// PREDICATE TREE:
//
// A compiled filter object is an And of per-key clauses. Each clause is one
// of:
//   - Equals: expr = value (expr IS NULL when value is null)
//   - Range:  expr >= lower AND expr < upper (half-open, never both-inclusive)
//   - Or:     disjunction of Equals
//
// An empty And is a tautology; an empty Or is a contradiction.
//
// EXPRESSIONS:
//
// Expr is a resolved field expression: a chain of single-argument function
// applications (outermost first) over one column. Functions are a tagged
// variant: FuncKnown for names the classifier understands, FuncOpaque for
// names forwarded verbatim to the engine.
package queryir
