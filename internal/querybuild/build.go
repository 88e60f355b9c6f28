// Package querybuild composes query plans from request parameters.
//
// Every plan is assembled in the same fixed order:
//
//	projection → WHERE → GROUP BY → ORDER BY → OFFSET/LIMIT
//
// Ordering and pagination never filter rows. The finished plan is checked
// with queryir.Validate before it is returned.
package querybuild

import (
	"math"
	"strings"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/coerce"
	"github.com/roach88/sqlrest/internal/expr"
	"github.com/roach88/sqlrest/internal/filter"
	"github.com/roach88/sqlrest/internal/ir"
	"github.com/roach88/sqlrest/internal/queryir"
	"github.com/roach88/sqlrest/internal/schema"
)

const (
	// DefaultPageSize is used when a request leaves page_size unset.
	DefaultPageSize = 100

	// DefaultMaxPageSize caps page_size unless configured otherwise.
	DefaultMaxPageSize = 10000

	// DefaultAggregate is the aggregate expression when none is given.
	DefaultAggregate = "count(*)"

	// Descending is the direction value that reverses ordering. Any other
	// value, compared case-insensitively, orders ascending.
	Descending = "descending"
)

// Options configures a Builder.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Builder turns request parameters into validated query plans.
// It holds no per-request state and is safe for concurrent use.
type Builder struct {
	classifier *expr.Classifier
	opts       Options
}

// New returns a Builder. Zero option fields take their defaults.
func New(classifier *expr.Classifier, opts Options) *Builder {
	if classifier == nil {
		classifier = expr.NewClassifier()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	return &Builder{classifier: classifier, opts: opts}
}

// Classifier returns the classifier used to resolve expressions.
func (b *Builder) Classifier() *expr.Classifier {
	return b.classifier
}

// Window is the ordering and pagination shared by select and aggregate.
type Window struct {
	Page      int
	PageSize  int
	OrderBy   string
	Direction string
}

// SelectRequest describes a row-level read.
type SelectRequest struct {
	// Columns are field expressions. Empty selects every column.
	Columns []string
	Filters map[string]any
	Window
}

// AggregateRequest describes a grouped read.
type AggregateRequest struct {
	GroupBy []string

	// Aggregate expressions. Empty means DefaultAggregate.
	Aggregate []string
	Filters   map[string]any
	Window
}

// Select builds a row-level read plan.
func (b *Builder) Select(table *schema.Table, req SelectRequest) (queryir.Select, error) {
	var (
		cols []queryir.Expr
		err  error
	)
	if len(req.Columns) == 0 {
		cols = make([]queryir.Expr, 0, len(table.Columns))
		for _, c := range table.Columns {
			cols = append(cols, queryir.ColumnExpr(c))
		}
	} else {
		cols, err = b.classifier.ResolveAll(req.Columns, table)
		if err != nil {
			return queryir.Select{}, err
		}
	}

	sel := queryir.Select{From: table.Name, Columns: cols}
	if err := b.finishRead(&sel, table, req.Filters, req.Window); err != nil {
		return queryir.Select{}, err
	}
	return sel, validated(sel)
}

// Aggregate builds a grouped read plan. The projection is the aggregate
// expressions followed by the group-by expressions.
func (b *Builder) Aggregate(table *schema.Table, req AggregateRequest) (queryir.Select, error) {
	aggs := req.Aggregate
	if len(aggs) == 0 {
		aggs = []string{DefaultAggregate}
	}

	aggExprs, err := b.classifier.ResolveAll(aggs, table)
	if err != nil {
		return queryir.Select{}, err
	}
	groupExprs, err := b.classifier.ResolveAll(req.GroupBy, table)
	if err != nil {
		return queryir.Select{}, err
	}

	sel := queryir.Select{
		From:    table.Name,
		Columns: append(aggExprs, groupExprs...),
	}
	if len(groupExprs) > 0 {
		sel.GroupBy = groupExprs
	}
	if err := b.finishRead(&sel, table, req.Filters, req.Window); err != nil {
		return queryir.Select{}, err
	}
	return sel, validated(sel)
}

// Count builds a plan counting non-null values of the table's first column
// among rows matching filters. The single result column is labelled
// DefaultAggregate.
func (b *Builder) Count(table *schema.Table, filters map[string]any) (queryir.Select, error) {
	e, err := b.classifier.Resolve(DefaultAggregate, table)
	if err != nil {
		return queryir.Select{}, err
	}

	where, err := filter.Compile(filters, table, b.classifier)
	if err != nil {
		return queryir.Select{}, err
	}

	sel := queryir.Select{
		From:    table.Name,
		Columns: []queryir.Expr{e},
		Filter:  where,
	}
	return sel, validated(sel)
}

// Insert builds insert plans for coerced rows. Rows are grouped by their set
// of columns so each plan is rectangular; groups keep first-seen order and
// rows keep their relative order within a group.
func (b *Builder) Insert(table *schema.Table, rows []coerce.Row) ([]queryir.Insert, error) {
	if len(rows) == 0 {
		return nil, apperr.NewInvalidArgument("insert into %q: no rows", table.Name)
	}

	var (
		plans []queryir.Insert
		index = map[string]int{}
	)
	for i, row := range rows {
		if len(row) == 0 {
			return nil, apperr.NewInvalidArgument("insert into %q: row %d is empty", table.Name, i)
		}
		cols := row.Columns()
		sig := strings.Join(cols, "\x00")

		at, ok := index[sig]
		if !ok {
			at = len(plans)
			index[sig] = at
			plans = append(plans, queryir.Insert{Into: table.Name, Columns: cols})
		}
		plans[at].Rows = append(plans[at].Rows, rowValues(row, cols))
	}

	for _, p := range plans {
		if err := validated(p); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

// Update builds a plan setting values on every row matching filters.
func (b *Builder) Update(table *schema.Table, filters map[string]any, values coerce.Row) (queryir.Update, error) {
	if len(values) == 0 {
		return queryir.Update{}, apperr.NewInvalidArgument("update %q: no values to set", table.Name)
	}

	where, err := filter.Compile(filters, table, b.classifier)
	if err != nil {
		return queryir.Update{}, err
	}

	upd := queryir.Update{Table: table.Name, Filter: where}
	for _, col := range values.Columns() {
		upd.Set = append(upd.Set, queryir.Assignment{Column: col, Value: values[col]})
	}
	return upd, validated(upd)
}

// Delete builds a plan removing every row matching filters.
func (b *Builder) Delete(table *schema.Table, filters map[string]any) (queryir.Delete, error) {
	where, err := filter.Compile(filters, table, b.classifier)
	if err != nil {
		return queryir.Delete{}, err
	}

	del := queryir.Delete{From: table.Name, Filter: where}
	return del, validated(del)
}

func (b *Builder) finishRead(sel *queryir.Select, table *schema.Table, filters map[string]any, w Window) error {
	where, err := filter.Compile(filters, table, b.classifier)
	if err != nil {
		return err
	}
	sel.Filter = where

	if w.OrderBy != "" {
		e, err := b.classifier.Resolve(w.OrderBy, table)
		if err != nil {
			return err
		}
		sel.OrderBy = &queryir.Order{
			Expr:       e,
			Descending: strings.EqualFold(w.Direction, Descending),
		}
	}

	page, err := b.Paginate(w.Page, w.PageSize)
	if err != nil {
		return err
	}
	sel.Page = &page
	return nil
}

// Paginate converts a zero-based page number and page size into an offset
// and limit. A page size of zero means the default; sizes above the maximum
// are capped.
func (b *Builder) Paginate(page, pageSize int) (queryir.Page, error) {
	if page < 0 {
		return queryir.Page{}, apperr.NewInvalidArgument("page must be non-negative, got %d", page)
	}
	if pageSize < 0 {
		return queryir.Page{}, apperr.NewInvalidArgument("page_size must be non-negative, got %d", pageSize)
	}
	if pageSize == 0 {
		pageSize = b.opts.DefaultPageSize
	}
	if pageSize > b.opts.MaxPageSize {
		pageSize = b.opts.MaxPageSize
	}
	if page > math.MaxInt/pageSize {
		return queryir.Page{}, apperr.NewInvalidArgument("page %d is out of range for page_size %d", page, pageSize)
	}
	return queryir.Page{Offset: page * pageSize, Limit: pageSize}, nil
}

func rowValues(row coerce.Row, cols []string) []ir.Value {
	vals := make([]ir.Value, len(cols))
	for i, c := range cols {
		vals[i] = row[c]
	}
	return vals
}

func validated(q queryir.Query) error {
	res := queryir.Validate(q)
	if res.Err() == nil {
		return nil
	}
	return &apperr.Error{
		Code:    apperr.InvalidPlan,
		Message: strings.Join(res.Problems, "; "),
	}
}
