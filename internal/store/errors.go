package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/querysql"
)

const (
	// pgUndefinedFunction is SQLSTATE 42883.
	pgUndefinedFunction = "42883"

	// mysqlNoSuchFunction is ER_SP_DOES_NOT_EXIST, reported for calls to
	// undefined functions.
	mysqlNoSuchFunction = 1305
)

// classify maps an engine error to an apperr code.
func classify(d querysql.Dialect, table string, err error) error {
	if err == nil {
		return nil
	}
	if isUndefinedFunction(d, err) {
		return &apperr.Error{
			Code:    apperr.UnknownFunction,
			Message: "engine rejected a function in the query",
			Table:   table,
			Err:     err,
		}
	}
	return apperr.WrapEngine(table, err)
}

func isUndefinedFunction(d querysql.Dialect, err error) bool {
	switch d {
	case querysql.Postgres:
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedFunction
	case querysql.MySQL:
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == mysqlNoSuchFunction
	case querysql.DuckDB:
		msg := err.Error()
		return strings.Contains(msg, "Function with name") && strings.Contains(msg, "does not exist")
	default:
		return strings.Contains(err.Error(), "no such function")
	}
}
