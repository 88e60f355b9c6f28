// Package cli implements the sqlrest command line: an HTTP server command and
// one command per table operation.
package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	Driver     string
	DSN        string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqlrest CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlrest",
		Short: "Query SQL tables without writing SQL",
		Long: `sqlrest serves select, aggregate, count, insert, update and delete
operations over any table of a SQLite, MySQL, PostgreSQL or DuckDB database.
Tables are discovered from the database at request time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|mysql|pgx|duckdb), overrides config")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database DSN, overrides config")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewColumnsCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewAggregateCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are rendered to stdout in the selected format.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	out := &OutputFormatter{Format: format, Writer: stdout}
	if werr := out.Error(errorCode(err), err.Error()); werr != nil {
		fmt.Fprintln(stderr, err)
	}

	return GetExitCode(err)
}

// tableArg requires exactly one positional argument, the table name.
func tableArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return WrapExitError(ExitCommandError, "expected a table name", err)
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
