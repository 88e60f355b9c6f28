package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/sqlrest/internal/ir"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

// Session is one transaction. It is not safe for concurrent use.
//
// Close is safe to call on every exit path: it rolls back unless Commit
// succeeded, and is a no-op after that.
type Session struct {
	store *Store
	tx    *sql.Tx
	done  bool
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(s.dialect, "", fmt.Errorf("begin transaction: %w", err))
	}
	return &Session{store: s, tx: tx}, nil
}

// Query runs a Select plan and returns its rows keyed by projection label.
func (s *Session) Query(ctx context.Context, q queryir.Query) ([]map[string]any, error) {
	var sel queryir.Select
	switch query := q.(type) {
	case queryir.Select:
		sel = query
	case *queryir.Select:
		sel = *query
	default:
		return nil, fmt.Errorf("query: expected a select plan, got %T", q)
	}

	sqlText, args, err := s.store.compiler.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	s.store.logger.DebugContext(ctx, "query", "sql", sqlText, "params", len(args))

	start := time.Now()
	rows, err := s.tx.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, classify(s.store.dialect, sel.From, err)
	}
	defer rows.Close()

	result, err := scanRows(rows, sel.Columns)
	if err != nil {
		return nil, classify(s.store.dialect, sel.From, err)
	}
	s.store.logger.DebugContext(ctx, "query done", "table", sel.From, "rows", len(result), "elapsed", time.Since(start))
	return result, nil
}

// Exec runs an Insert, Update or Delete plan and returns the number of rows
// the engine reports as affected.
func (s *Session) Exec(ctx context.Context, q queryir.Query) (int64, error) {
	table := tableOf(q)

	sqlText, args, err := s.store.compiler.Compile(q)
	if err != nil {
		return 0, fmt.Errorf("compile: %w", err)
	}
	s.store.logger.DebugContext(ctx, "exec", "sql", sqlText, "params", len(args))

	res, err := s.tx.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, classify(s.store.dialect, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(s.store.dialect, table, fmt.Errorf("rows affected: %w", err))
	}
	return n, nil
}

// Commit commits the transaction.
func (s *Session) Commit() error {
	if s.done {
		return fmt.Errorf("commit: session already closed")
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return classify(s.store.dialect, "", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Close rolls back the transaction unless it was committed.
func (s *Session) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func tableOf(q queryir.Query) string {
	switch query := q.(type) {
	case queryir.Select:
		return query.From
	case *queryir.Select:
		return query.From
	case queryir.Insert:
		return query.Into
	case *queryir.Insert:
		return query.Into
	case queryir.Update:
		return query.Table
	case *queryir.Update:
		return query.Table
	case queryir.Delete:
		return query.From
	case *queryir.Delete:
		return query.From
	default:
		return ""
	}
}

// scanRows reads every row into a map keyed by projection label.
func scanRows(rows *sql.Rows, cols []queryir.Expr) ([]map[string]any, error) {
	driverCols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if len(driverCols) != len(cols) {
		return nil, fmt.Errorf("engine returned %d columns, plan has %d", len(driverCols), len(cols))
	}

	result := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, e := range cols {
			row[e.Label] = normalize(values[i], e)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// normalize converts driver values to the plain values returned to callers.
func normalize(v any, e queryir.Expr) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		if e.IsBare() && e.Column.Type == schema.TypeDate {
			return ir.DateOf(val)
		}
		return val
	default:
		return val
	}
}
