package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success([]map[string]any{{"name": "a", "id": int64(1)}})
	require.NoError(t, err)

	assert.Equal(t, `{"data":[{"id":1,"name":"a"}],"status":"ok"}`+"\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("UNKNOWN_COLUMN", "no column named \"x\""))

	assert.Equal(t, `{"error":{"code":"UNKNOWN_COLUMN","message":"no column named \"x\""},"status":"error"}`+"\n", buf.String())
}

func TestOutputFormatter_TextTable(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	signup := ir.DateOf(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	err := formatter.Success([]map[string]any{
		{"id": int64(1), "name": "a", "signup": signup},
		{"id": int64(20), "name": nil, "signup": nil},
	})
	require.NoError(t, err)

	expected := "id  name  signup\n" +
		"1   a     2024-03-05\n" +
		"20  NULL  NULL\n"
	assert.Equal(t, expected, buf.String())
}

func TestOutputFormatter_TextEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success([]map[string]any{}))
	assert.Equal(t, "(no rows)\n", buf.String())
}

func TestOutputFormatter_TextList(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success([]any{"orders", "users"}))
	assert.Equal(t, "orders\nusers\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("TABLE_NOT_FOUND", "no table named \"x\""))
	assert.Equal(t, "Error [TABLE_NOT_FOUND]: no table named \"x\"\n", buf.String())
}

func TestExitError(t *testing.T) {
	err := NewExitError(ExitCommandError, "bad flags")
	assert.Equal(t, "bad flags", err.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	cause := errors.New("boom")
	wrapped := WrapExitError(ExitFailure, "select failed", cause)
	assert.Equal(t, "select failed: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestErrorCode(t *testing.T) {
	appErr := WrapExitError(ExitFailure, "select failed", apperr.NewUnknownColumn("users", "x"))
	assert.Equal(t, "UNKNOWN_COLUMN", errorCode(appErr))

	assert.Equal(t, "COMMAND_ERROR", errorCode(NewExitError(ExitCommandError, "no dsn")))
	assert.Equal(t, "ERROR", errorCode(errors.New("plain")))
}
