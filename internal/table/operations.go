package table

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/sqlrest/internal/coerce"
	"github.com/roach88/sqlrest/internal/querybuild"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

// Select returns rows of table, keyed by column name or expression label.
func (s *Service) Select(ctx context.Context, table string, req querybuild.SelectRequest) (rows []map[string]any, err error) {
	defer s.observe("select", table, time.Now(), &err)

	var plan queryir.Select
	err = s.withSchema(ctx, table, func(t *schema.Table) (err error) {
		plan, err = s.builder.Select(t, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.query(ctx, table, plan)
}

// Aggregate returns grouped rows. Each row holds the aggregate expressions
// followed by the group-by expressions, keyed by expression label.
func (s *Service) Aggregate(ctx context.Context, table string, req querybuild.AggregateRequest) (rows []map[string]any, err error) {
	defer s.observe("aggregate", table, time.Now(), &err)

	var plan queryir.Select
	err = s.withSchema(ctx, table, func(t *schema.Table) (err error) {
		plan, err = s.builder.Aggregate(t, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.query(ctx, table, plan)
}

// Count returns the number of non-null values of the table's first column
// among rows matching filters.
func (s *Service) Count(ctx context.Context, table string, filters map[string]any) (n int64, err error) {
	defer s.observe("count", table, time.Now(), &err)

	var plan queryir.Select
	err = s.withSchema(ctx, table, func(t *schema.Table) (err error) {
		plan, err = s.builder.Count(t, filters)
		return err
	})
	if err != nil {
		return 0, err
	}

	err = s.withSession(ctx, table, func(sess Session) error {
		n, err = countIn(ctx, sess, plan)
		return err
	})
	return n, err
}

// Insert coerces every row, then inserts them all in one transaction. Any
// failure fails the whole batch and nothing is written.
func (s *Service) Insert(ctx context.Context, table string, rows []map[string]any) (res MutationResult, err error) {
	defer s.observe("insert", table, time.Now(), &err)

	var plans []queryir.Insert
	err = s.withSchema(ctx, table, func(t *schema.Table) error {
		coerced, err := coerce.CoerceAll(rows, t)
		if err != nil {
			return err
		}
		plans, err = s.builder.Insert(t, coerced)
		return err
	})
	if err != nil {
		return MutationResult{}, err
	}

	err = s.withSession(ctx, table, func(sess Session) error {
		var affected int64
		for _, p := range plans {
			n, err := sess.Exec(ctx, p)
			if err != nil {
				return err
			}
			affected += n
		}
		s.checkDivergence(ctx, "insert", table, int64(len(rows)), affected)
		return sess.Commit()
	})
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{Status: StatusSuccess, NRows: int64(len(rows))}, nil
}

// Update sets values on every row matching filters and reports how many rows
// matched before the update ran.
func (s *Service) Update(ctx context.Context, table string, filters, values map[string]any) (res MutationResult, err error) {
	defer s.observe("update", table, time.Now(), &err)

	var (
		plan      queryir.Update
		countPlan queryir.Select
	)
	err = s.withSchema(ctx, table, func(t *schema.Table) error {
		coerced, err := coerce.Coerce(values, t)
		if err != nil {
			return err
		}
		if plan, err = s.builder.Update(t, filters, coerced); err != nil {
			return err
		}
		countPlan, err = s.builder.Count(t, filters)
		return err
	})
	if err != nil {
		return MutationResult{}, err
	}

	return s.countThenMutate(ctx, "update", table, countPlan, plan)
}

// Delete removes every row matching filters and reports how many rows
// matched before the delete ran.
func (s *Service) Delete(ctx context.Context, table string, filters map[string]any) (res MutationResult, err error) {
	defer s.observe("delete", table, time.Now(), &err)

	var (
		plan      queryir.Delete
		countPlan queryir.Select
	)
	err = s.withSchema(ctx, table, func(t *schema.Table) (err error) {
		if plan, err = s.builder.Delete(t, filters); err != nil {
			return err
		}
		countPlan, err = s.builder.Count(t, filters)
		return err
	})
	if err != nil {
		return MutationResult{}, err
	}

	return s.countThenMutate(ctx, "delete", table, countPlan, plan)
}

// countThenMutate counts, mutates and commits in one session. The count and
// the mutation are separate statements and are not isolated.
func (s *Service) countThenMutate(ctx context.Context, op, table string, countPlan queryir.Select, mutation queryir.Query) (MutationResult, error) {
	var counted int64
	err := s.withSession(ctx, table, func(sess Session) error {
		var err error
		counted, err = countIn(ctx, sess, countPlan)
		if err != nil {
			return err
		}

		affected, err := sess.Exec(ctx, mutation)
		if err != nil {
			return err
		}
		s.checkDivergence(ctx, op, table, counted, affected)
		return sess.Commit()
	})
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{Status: StatusSuccess, NRows: counted}, nil
}

func (s *Service) query(ctx context.Context, table string, plan queryir.Select) ([]map[string]any, error) {
	var rows []map[string]any
	err := s.withSession(ctx, table, func(sess Session) error {
		var err error
		rows, err = sess.Query(ctx, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

func countIn(ctx context.Context, sess Session, plan queryir.Select) (int64, error) {
	rows, err := sess.Query(ctx, plan)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	label := plan.Columns[0].Label
	n, err := countValue(rows[0][label])
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	return n, nil
}

// checkDivergence logs when the engine's affected-row count differs from
// the expected count. The mismatch is reported, not corrected.
func (s *Service) checkDivergence(ctx context.Context, op, table string, expected, affected int64) {
	if expected == affected {
		return
	}
	s.logger.WarnContext(ctx, "affected row count diverges from pre-count",
		"op", op,
		"table", table,
		"counted", expected,
		"affected", affected,
	)
}
