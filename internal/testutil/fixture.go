// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrest/internal/store"
)

// UsersDDL creates the users fixture: three rows aged 17, 25 and 40 with
// names a, b and c and no signup date.
var UsersDDL = []string{
	`CREATE TABLE users (id INTEGER PRIMARY KEY, age INT, name TEXT, signup DATE)`,
	`INSERT INTO users (id, age, name) VALUES (1, 17, 'a'), (2, 25, 'b'), (3, 40, 'c')`,
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SQLitePath returns the path of a fresh SQLite file in a test temp dir.
func SQLitePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// OpenSQLite opens a SQLite store at path and runs ddl against it. The
// store is closed when the test ends.
func OpenSQLite(t *testing.T, path string, ddl ...string) *store.Store {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, store.Config{Driver: "sqlite3", DSN: path}, QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	for _, stmt := range ddl {
		_, err := st.DB().ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	return st
}

// UsersStore opens a store holding the users fixture.
func UsersStore(t *testing.T) *store.Store {
	t.Helper()
	return OpenSQLite(t, SQLitePath(t), UsersDDL...)
}
