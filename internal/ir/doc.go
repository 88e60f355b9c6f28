// Package ir provides the scalar value representation shared by the query
// layer.
//
// Values arrive from callers as loosely-typed decoded JSON (any). They are
// converted once, at the boundary, into the sealed Value type so that the
// filter compiler, row coercion and SQL compiler can switch exhaustively
// over a closed set of cases.
//
// ir imports nothing internal. Every other internal package may import it.
//
// Key constraints:
//   - Date is a calendar date with no time component and no zone
//   - DateTime carries a full timestamp
//   - JSON numbers with an integral value become Int, all others Float
//   - Composite values (arrays, objects) are not scalars and are rejected
package ir
