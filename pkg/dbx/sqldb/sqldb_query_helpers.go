package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/errorx"
	"github.com/marcodd23/go-export-ledger/pkg/logx"
)

// QueryAndScan executes a query on the managed connection and maps every row with scanFunc.
//
// The connection is held exclusively while the rows are read and the result set is closed
// through dbx.CloseResources before it is released.
//
// Arguments:
//   - ctx: The context for the query execution.
//   - mgr: The connection manager owning the connection.
//   - scanFunc: A function that maps the current row to T.
//   - query: The SQL query to be executed.
//   - args: The arguments for the SQL query, if any.
//
// Returns:
//   - []T: The mapped rows.
//   - error: dbx.ErrOffline when no connection is available, or the query/scan error.
//
// Example Usage:
//
//	codes, err := sqldb.QueryAndScan(ctx, mgr, func(rows *sql.Rows) (string, error) {
//	    var code string
//	    err := rows.Scan(&code)
//	    return code, err
//	}, "SELECT delivery_code FROM deliveries")
func QueryAndScan[T any](ctx context.Context, mgr dbx.ConnectionManager, scanFunc func(rows *sql.Rows) (T, error), query string, args ...any) ([]T, error) {
	var results []T

	err := QueryScanAndProcess(ctx, mgr, query, scanFunc, func(item T) error {
		results = append(results, item)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}

	return results, nil
}

// QueryScanAndProcess executes a query and hands every mapped row to processCallbackFunc.
// Processing stops at the first scan or callback error.
func QueryScanAndProcess[T any](ctx context.Context, mgr dbx.ConnectionManager, query string, scanFunc func(rows *sql.Rows) (T, error), processCallbackFunc func(item T) error, args ...any) error {
	conn, release, err := mgr.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error executing query '%s'", query), err)
		return errorx.NewDatabaseErrorWrapper(err, "Error executing query '%s'", query)
	}
	defer dbx.CloseResources(ctx, mgr, conn, nil, rows)

	for rows.Next() {
		item, err := scanFunc(rows)
		if err != nil {
			return errors.WithStack(err)
		}

		if err := processCallbackFunc(item); err != nil {
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(rows.Err())
}

// Exec executes a statement that returns no rows on the managed connection, outside of any
// transaction, and returns the number of rows affected.
func Exec(ctx context.Context, mgr dbx.ConnectionManager, execQuery string, args ...any) (int64, error) {
	conn, release, err := mgr.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	result, err := conn.ExecContext(ctx, execQuery, args...)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error executing query '%s'", execQuery), err)
		return 0, errorx.NewDatabaseErrorWrapper(err, "Error executing query '%s'", execQuery)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errorx.NewDatabaseErrorWrapper(err, "Error reading rows affected")
	}

	return affected, nil
}
