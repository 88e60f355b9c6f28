package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/querysql"
	"github.com/roach88/sqlrest/internal/schema"
)

// Tables lists base tables visible to the connection, sorted by name.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	var query string
	switch s.dialect {
	case querysql.SQLite:
		query = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	case querysql.MySQL:
		query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'`
	default:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.WrapEngine("", fmt.Errorf("list tables: %w", err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.WrapEngine("", fmt.Errorf("scan table name: %w", err))
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.WrapEngine("", fmt.Errorf("iterate tables: %w", err))
	}

	sort.Strings(names)
	return names, nil
}

// Schema reads the column list of a table in ordinal order.
// Returns TableNotFound, listing the available tables, when the table has
// no columns visible to the connection.
func (s *Store) Schema(ctx context.Context, table string) (*schema.Table, error) {
	var (
		cols []schema.Column
		err  error
	)
	switch s.dialect {
	case querysql.SQLite:
		cols, err = s.sqliteColumns(ctx, table)
	case querysql.MySQL:
		cols, err = s.infoSchemaColumns(ctx, table, `
			SELECT COLUMN_NAME, COLUMN_TYPE, COLUMN_COMMENT
			FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION`)
	default:
		cols, err = s.infoSchemaColumns(ctx, table, fmt.Sprintf(`
			SELECT column_name, data_type, ''
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = %s
			ORDER BY ordinal_position`, s.dialect.Placeholder(1)))
	}
	if err != nil {
		return nil, apperr.WrapEngine(table, err)
	}

	if len(cols) == 0 {
		available, _ := s.Tables(ctx)
		return nil, apperr.NewTableNotFound(table, available)
	}

	return schema.NewTable(table, cols)
}

// sqliteColumns reads PRAGMA table_info, which reports no rows for a
// missing table.
func (s *Store) sqliteColumns(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+s.dialect.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			cid      int
			name     string
			declared string
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, schema.Column{
			Name:         name,
			Type:         schema.ClassifyDeclared(declared),
			DeclaredType: declared,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return cols, nil
}

func (s *Store) infoSchemaColumns(ctx context.Context, table, query string) ([]schema.Column, error) {
	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var name, declared string
		var comment sql.NullString
		if err := rows.Scan(&name, &declared, &comment); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, schema.Column{
			Name:         name,
			Type:         schema.ClassifyDeclared(declared),
			DeclaredType: declared,
			Description:  comment.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return cols, nil
}

var _ schema.Provider = (*Store)(nil)
