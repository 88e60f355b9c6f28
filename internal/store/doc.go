// Package store provides database/sql backed schema discovery and query
// execution for the supported engines.
//
// One Store wraps one *sql.DB. It implements schema.Provider and opens
// Sessions, each of which owns a single transaction:
//
//	sess, err := st.Begin(ctx)
//	if err != nil { ... }
//	defer sess.Close()          // rolls back unless committed
//	n, err := sess.Exec(ctx, plan)
//	if err != nil { ... }
//	return sess.Commit()
//
// # Engines
//
//   - sqlite3: github.com/mattn/go-sqlite3 (default, used by tests)
//   - mysql: github.com/go-sql-driver/mysql
//   - pgx: github.com/jackc/pgx/v5/stdlib
//   - duckdb: github.com/duckdb/duckdb-go/v2
//
// # Errors
//
// Engine failures are classified into apperr codes: an undefined function
// becomes UnknownFunction, a missing table TableNotFound, anything else
// EngineError.
//
// # Result rows
//
// Rows are keyed by the projection label, never by the driver's column
// name. Byte slices become strings, and time values read from a date
// column become ir.Date.
package store
