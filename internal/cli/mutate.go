package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	var rowsFlag string

	cmd := &cobra.Command{
		Use:   "insert <table>",
		Short: "Insert rows into a table",
		Long: `Insert rows into a table in one transaction. Either every row is
inserted or none is.

Example:
  sqlrest insert users --rows '[{"id": 4, "name": "d", "signup": "2024-03-05"}]'
  sqlrest insert users --rows @rows.json`,
		Args: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []map[string]any
			if err := readJSONFlag(cmd, "rows", rowsFlag, &rows); err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				res, err := a.service.Insert(ctx, args[0], rows)
				if err != nil {
					return err
				}
				return newOutput(cmd, rootOpts).Success(mutationOutput(res))
			})
		},
	}

	cmd.Flags().StringVar(&rowsFlag, "rows", "", "rows as a JSON array of objects (@file reads a file, @- stdin)")
	_ = cmd.MarkFlagRequired("rows")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var filtersFlag, valuesFlag string

	cmd := &cobra.Command{
		Use:   "update <table>",
		Short: "Update rows matching filters",
		Long: `Update rows matching filters. Without filters every row is updated.

Example:
  sqlrest update users --filters '{"id": 1}' --values '{"name": "alice"}'`,
		Args: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := readObjectFlag(cmd, "filters", filtersFlag)
			if err != nil {
				return err
			}
			values, err := readObjectFlag(cmd, "values", valuesFlag)
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				res, err := a.service.Update(ctx, args[0], filters, values)
				if err != nil {
					return err
				}
				return newOutput(cmd, rootOpts).Success(mutationOutput(res))
			})
		},
	}

	addFilterFlag(cmd, &filtersFlag)
	cmd.Flags().StringVar(&valuesFlag, "values", "", "new values as a JSON object (@file reads a file, @- stdin)")
	_ = cmd.MarkFlagRequired("values")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var filtersFlag string

	cmd := &cobra.Command{
		Use:   "delete <table>",
		Short: "Delete rows matching filters",
		Long: `Delete rows matching filters. Without filters every row is deleted.

Example:
  sqlrest delete users --filters '{"age": [0, 18]}'`,
		Args: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := readObjectFlag(cmd, "filters", filtersFlag)
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				res, err := a.service.Delete(ctx, args[0], filters)
				if err != nil {
					return err
				}
				return newOutput(cmd, rootOpts).Success(mutationOutput(res))
			})
		},
	}

	addFilterFlag(cmd, &filtersFlag)

	return cmd
}
