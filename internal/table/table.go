// Package table implements the table operations: select, aggregate, insert,
// update, delete and count, plus table and column listing.
//
// Every operation looks up the table schema, compiles its request into a
// query plan, and runs the plan in exactly one session that is released on
// every exit path. Mutations commit before returning.
//
// Delete and update first count the matching rows and then mutate them in
// the same session. The two statements are not isolated from concurrent
// writers, so the reported count can differ from what the mutation touched.
// When the engine's affected-row count disagrees, the divergence is logged
// at WARN.
package table

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/querybuild"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

// StatusSuccess is the status of a successful mutation.
const StatusSuccess = "success"

// Session is a unit of work against the engine.
type Session interface {
	// Query runs a select plan and returns rows keyed by projection label.
	Query(ctx context.Context, q queryir.Query) ([]map[string]any, error)

	// Exec runs a mutation plan and returns the affected-row count.
	Exec(ctx context.Context, q queryir.Query) (int64, error)

	Commit() error

	// Close releases the session, rolling back uncommitted work. It must be
	// safe to call after Commit.
	Close() error
}

// SessionProvider opens sessions.
type SessionProvider interface {
	Begin(ctx context.Context) (Session, error)
}

// BeginFunc adapts a function to SessionProvider.
type BeginFunc func(ctx context.Context) (Session, error)

// Begin calls f.
func (f BeginFunc) Begin(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Invalidator is implemented by schema providers that cache. Evicting a
// table forces the next lookup to go to the engine.
type Invalidator interface {
	Invalidate(ctx context.Context, tables ...string) error
}

// Observer receives the outcome of every operation. code is empty on
// success.
type Observer interface {
	ObserveOperation(op, table string, code apperr.Code, elapsed time.Duration)
}

// MutationResult reports a successful insert, update or delete.
type MutationResult struct {
	Status string `json:"status"`
	NRows  int64  `json:"n_rows"`
}

// Service runs table operations. Safe for concurrent use.
type Service struct {
	schemas  schema.Provider
	sessions SessionProvider
	builder  *querybuild.Builder
	logger   *slog.Logger
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithObserver sets an observer for operation outcomes.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// New creates a Service. A nil builder uses querybuild defaults.
func New(schemas schema.Provider, sessions SessionProvider, builder *querybuild.Builder, opts ...Option) *Service {
	if builder == nil {
		builder = querybuild.New(nil, querybuild.Options{})
	}
	s := &Service{
		schemas:  schemas,
		sessions: sessions,
		builder:  builder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tables lists available table names.
func (s *Service) Tables(ctx context.Context) (names []string, err error) {
	defer s.observe("tables", "", time.Now(), &err)

	names, err = s.schemas.Tables(ctx)
	if err != nil {
		return nil, apperr.WrapEngine("", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Columns lists the column descriptors of a table in schema order.
func (s *Service) Columns(ctx context.Context, table string) (cols []schema.Column, err error) {
	defer s.observe("columns", table, time.Now(), &err)

	t, err := s.schema(ctx, table)
	if err != nil {
		return nil, err
	}
	return t.Columns, nil
}

// schema looks up a table, wrapping untyped provider failures.
func (s *Service) schema(ctx context.Context, table string) (*schema.Table, error) {
	t, err := s.schemas.Schema(ctx, table)
	if err != nil {
		return nil, apperr.WrapEngine(table, err)
	}
	return t, nil
}

// withSchema looks up table and runs build against it. When build rejects a
// column and the provider caches schemas, the table is evicted and build
// runs once more against a fresh lookup, so columns added since the schema
// was cached become visible.
func (s *Service) withSchema(ctx context.Context, table string, build func(*schema.Table) error) error {
	t, err := s.schema(ctx, table)
	if err != nil {
		return err
	}
	err = build(t)

	inv, ok := s.schemas.(Invalidator)
	if !ok || !apperr.Is(err, apperr.UnknownColumn) {
		return err
	}
	if ierr := inv.Invalidate(ctx, table); ierr != nil {
		s.logger.WarnContext(ctx, "schema eviction failed", "table", table, "error", ierr)
		return err
	}

	fresh, lerr := s.schema(ctx, table)
	if lerr != nil {
		return lerr
	}
	s.logger.DebugContext(ctx, "schema refreshed", "table", table, "columns", fresh.ColumnNames())
	return build(fresh)
}

// withSession runs fn in a new session and closes it on every path.
func (s *Service) withSession(ctx context.Context, table string, fn func(Session) error) (err error) {
	sess, err := s.sessions.Begin(ctx)
	if err != nil {
		return apperr.WrapEngine(table, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.logger.WarnContext(ctx, "session close failed", "table", table, "error", cerr)
		}
	}()

	if err := fn(sess); err != nil {
		return apperr.WrapEngine(table, err)
	}
	return nil
}

func (s *Service) observe(op, table string, start time.Time, errp *error) {
	var code apperr.Code
	if *errp != nil {
		code = apperr.CodeOf(*errp)
		if code == "" {
			code = apperr.EngineError
		}
	}
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveOperation(op, table, code, elapsed)
	}
	if *errp != nil {
		s.logger.Debug("operation failed", "op", op, "table", table, "code", string(code), "error", *errp)
	}
}

// countValue extracts an integer count from a driver value.
func countValue(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		var out int64
		if _, err := fmt.Sscan(n, &out); err != nil {
			return 0, fmt.Errorf("count %q is not an integer", n)
		}
		return out, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
