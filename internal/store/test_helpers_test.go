package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore opens a SQLite store in a temp dir and runs the given
// statements against it.
func createTestStore(t *testing.T, ddl ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), Config{Driver: "sqlite3", DSN: path}, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return s
}

const usersDDL = `CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name VARCHAR(64),
	age INT,
	signup DATE,
	last_seen DATETIME,
	active BOOLEAN
)`
