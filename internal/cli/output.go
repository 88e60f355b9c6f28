package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation rejected (unknown column, bad filter, engine error)
	ExitCommandError = 2 // Command error (bad flags, unreadable config, no connection)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode names an error for output: the apperr code when there is one.
func errorCode(err error) string {
	if code := apperr.CodeOf(err); code != "" {
		return string(code)
	}
	if GetExitCode(err) == ExitCommandError {
		return "COMMAND_ERROR"
	}
	return "ERROR"
}

// OutputFormatter handles JSON vs text output for CLI commands.
//
// JSON output is canonical (sorted keys, NFC strings) so that it can be
// compared byte-for-byte.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data wrapped as {"status":"ok","data":...} in JSON mode.
// In text mode rows are rendered as an aligned table, lists one item per
// line, and everything else as canonical JSON.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.writeCanonical(map[string]any{"status": "ok", "data": data})
	}

	switch v := data.(type) {
	case []map[string]any:
		return writeTable(f.Writer, v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				fmt.Fprintln(f.Writer, s)
				continue
			}
			if err := f.writeCanonical(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return f.writeCanonical(data)
	}
}

// Error writes an error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return f.writeCanonical(map[string]any{
			"status": "error",
			"error":  map[string]any{"code": code, "message": message},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

func (f *OutputFormatter) writeCanonical(v any) error {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = f.Writer.Write(data)
	return err
}

// writeTable renders rows with a header of their sorted keys.
func writeTable(w io.Writer, rows []map[string]any) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return nil
	}

	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cell(v any) string {
	switch val := v.(type) {
	case nil, ir.Null:
		return "NULL"
	case string:
		return val
	case ir.String:
		return string(val)
	case ir.Date:
		return val.String()
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
