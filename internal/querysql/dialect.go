package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects identifier quoting and placeholder syntax.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	DuckDB   Dialect = "duckdb"
)

// ParseDialect maps a dialect or database/sql driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "duckdb":
		return DuckDB, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", name)
	}
}

// QuoteIdent quotes a table, column or alias name. Embedded quote characters
// are doubled.
func (d Dialect) QuoteIdent(name string) string {
	q := `"`
	if d == MySQL {
		q = "`"
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// Placeholder returns the bind marker for the n-th parameter (1-based).
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
