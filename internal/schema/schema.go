// Package schema describes tables discovered at runtime.
//
// A Table is a read-only lookup from column name to Column. The query layer
// never mutates it and never infers types through reflection: every type
// decision goes through the closed Type set below.
package schema

import (
	"context"
	"fmt"
)

// Type is the storage type of a column, reduced to the closed set the query
// layer reasons about.
type Type string

const (
	TypeInteger  Type = "integer"
	TypeFloat    Type = "float"
	TypeString   Type = "string"
	TypeBoolean  Type = "boolean"
	TypeDate     Type = "date"
	TypeDateTime Type = "datetime"
	TypeTime     Type = "time"
	TypeInterval Type = "interval"
	TypeOther    Type = "other"
)

// Continuous reports whether range queries are meaningful for the type.
// Numeric and date/time types are continuous; interval is not.
func (t Type) Continuous() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeDate, TypeDateTime, TypeTime:
		return true
	default:
		return false
	}
}

// Column describes one column of a table.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`

	// DeclaredType is the engine's own type name (e.g. "VARCHAR(255)").
	DeclaredType string `json:"declared_type,omitempty"`

	Description string `json:"description,omitempty"`
}

// Table is the schema of one table: its name and ordered columns.
type Table struct {
	Name    string
	Columns []Column

	index map[string]int
}

// NewTable builds a Table. Column names must be unique.
func NewTable(name string, columns []Column) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, c.Name)
		}
		index[c.Name] = i
	}
	return &Table{Name: name, Columns: columns, index: index}, nil
}

// MustTable is NewTable that panics on error. Intended for tests and
// static fixtures.
func MustTable(name string, columns ...Column) *Table {
	t, err := NewTable(name, columns)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the column with the given name. Matching is exact and
// case-sensitive.
func (t *Table) Lookup(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// First returns the first column in schema order.
func (t *Table) First() (Column, bool) {
	if len(t.Columns) == 0 {
		return Column{}, false
	}
	return t.Columns[0], true
}

// ColumnNames returns column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Provider discovers schemas. Implementations return an apperr
// TableNotFound error when the table does not exist.
type Provider interface {
	// Tables lists the table names available to the caller.
	Tables(ctx context.Context) ([]string, error)

	// Schema returns the schema of the named table.
	Schema(ctx context.Context, table string) (*Table, error)
}
