package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sqlrest", cmd.Use)
	assert.Contains(t, cmd.Long, "DuckDB")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "tables", "columns", "select", "aggregate", "count", "insert", "update", "delete"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "driver", "dsn"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
	assert.NotNil(t, serveCmd.Flags().Lookup("prefix"))
}

func TestSelectCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	selectCmd, _, err := cmd.Find([]string{"select"})
	require.NoError(t, err)

	filtersFlag := selectCmd.Flags().Lookup("filters")
	require.NotNil(t, filtersFlag)
	assert.Equal(t, "f", filtersFlag.Shorthand)

	for _, name := range []string{"columns", "page", "page-size", "orderby", "direction"} {
		assert.NotNil(t, selectCmd.Flags().Lookup(name), name)
	}
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("text"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
