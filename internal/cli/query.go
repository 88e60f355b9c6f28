package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlrest/internal/querybuild"
	"github.com/roach88/sqlrest/internal/table"
)

// ReadOptions holds the flags shared by select, aggregate and count.
type ReadOptions struct {
	*RootOptions
	Filters   string
	Page      int
	PageSize  int
	OrderBy   string
	Direction string
}

func (o *ReadOptions) window() querybuild.Window {
	return querybuild.Window{
		Page:      o.Page,
		PageSize:  o.PageSize,
		OrderBy:   o.OrderBy,
		Direction: o.Direction,
	}
}

func addFilterFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "filters", "f", "", `filters as a JSON object, e.g. '{"age":[18,65]}' (@file reads a file, @- stdin)`)
}

func addWindowFlags(cmd *cobra.Command, opts *ReadOptions) {
	cmd.Flags().IntVar(&opts.Page, "page", 0, "zero-based page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "rows per page (0 uses the configured default)")
	cmd.Flags().StringVar(&opts.OrderBy, "orderby", "", "field expression to order by")
	cmd.Flags().StringVar(&opts.Direction, "direction", "", `order direction; "descending" reverses it`)
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				names, err := a.service.Tables(ctx)
				if err != nil {
					return err
				}
				out := make([]any, len(names))
				for i, n := range names {
					out[i] = n
				}
				return newOutput(cmd, rootOpts).Success(out)
			})
		},
	}
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "List the columns of a table",
		Args:  tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				cols, err := a.service.Columns(ctx, args[0])
				if err != nil {
					return err
				}
				rows := make([]map[string]any, len(cols))
				for i, c := range cols {
					rows[i] = map[string]any{
						"name":          c.Name,
						"type":          string(c.Type),
						"declared_type": c.DeclaredType,
						"description":   c.Description,
					}
				}
				return newOutput(cmd, rootOpts).Success(rows)
			})
		},
	}
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}
	var columns []string

	cmd := &cobra.Command{
		Use:   "select <table>",
		Short: "Select rows from a table",
		Long: `Select rows from a table.

Columns are field expressions: a column name, optionally wrapped in function
calls such as upper(name) or date(created_at).

Example:
  sqlrest select users --columns id --columns 'upper(name)' --filters '{"age":[18,65]}'
  sqlrest select users --orderby id --direction descending --page-size 10`,
		Args: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := readObjectFlag(cmd, "filters", opts.Filters)
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				rows, err := a.service.Select(ctx, args[0], querybuild.SelectRequest{
					Columns: columns,
					Filters: filters,
					Window:  opts.window(),
				})
				if err != nil {
					return err
				}
				return newOutput(cmd, rootOpts).Success(rows)
			})
		},
	}

	cmd.Flags().StringArrayVar(&columns, "columns", nil, "field expression to select (repeatable; default all columns)")
	addFilterFlag(cmd, &opts.Filters)
	addWindowFlags(cmd, opts)

	return cmd
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}
	var groupBy, aggregate []string

	cmd := &cobra.Command{
		Use:   "aggregate <table>",
		Short: "Aggregate rows of a table",
		Long: `Aggregate rows of a table, grouped by zero or more field expressions.

Example:
  sqlrest aggregate users --groupby age --aggregate 'count(*)'
  sqlrest aggregate orders --groupby 'date(created_at)' --aggregate 'sum(total)'`,
		Args: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := readObjectFlag(cmd, "filters", opts.Filters)
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				rows, err := a.service.Aggregate(ctx, args[0], querybuild.AggregateRequest{
					GroupBy:   groupBy,
					Aggregate: aggregate,
					Filters:   filters,
					Window:    opts.window(),
				})
				if err != nil {
					return err
				}
				return newOutput(cmd, rootOpts).Success(rows)
			})
		},
	}

	cmd.Flags().StringArrayVar(&groupBy, "groupby", nil, "field expression to group by (repeatable)")
	cmd.Flags().StringArrayVar(&aggregate, "aggregate", nil, "aggregate field expression (repeatable; default count(*))")
	addFilterFlag(cmd, &opts.Filters)
	addWindowFlags(cmd, opts)

	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count rows matching filters",
		Args:  tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := readObjectFlag(cmd, "filters", opts.Filters)
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				n, err := a.service.Count(ctx, args[0], filters)
				if err != nil {
					return err
				}
				return newOutput(cmd, rootOpts).Success(map[string]any{"count": n})
			})
		},
	}

	addFilterFlag(cmd, &opts.Filters)

	return cmd
}

func mutationOutput(res table.MutationResult) map[string]any {
	return map[string]any{"status": res.Status, "n_rows": res.NRows}
}

// readJSONFlag decodes a JSON flag value. "@path" reads the file at path
// and "@-" reads stdin. An empty value leaves v unchanged.
func readJSONFlag(cmd *cobra.Command, name, raw string, v any) error {
	if raw == "" {
		return nil
	}

	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		var err error
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read --%s", name), err)
		}
	}

	// Numbers stay json.Number so large integers keep their exact value.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("--%s is not valid JSON", name), err)
	}
	if dec.More() {
		return NewExitError(ExitCommandError, fmt.Sprintf("--%s has trailing data after the JSON value", name))
	}
	return nil
}

func readObjectFlag(cmd *cobra.Command, name, raw string) (map[string]any, error) {
	var m map[string]any
	if err := readJSONFlag(cmd, name, raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
