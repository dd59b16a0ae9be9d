package dbx

import (
	"context"
	"database/sql"

	"github.com/marcodd23/go-export-ledger/pkg/logx"
)

// ManagedConnectionChecker tells the managed connection apart from ad-hoc ones.
type ManagedConnectionChecker interface {
	IsConnectionManaged(conn *sql.Conn) bool
}

// CloseResources closes the per-call resources of a query.
//
// The result set is closed first, then the statement. Each close is attempted on its
// own, failures are logged and never returned. The connection is closed only when it
// is not the connection owned by the manager, so the shared handle always survives.
// Nil arguments are skipped.
//
// Example Usage:
//
//	stmt, err := conn.PrepareContext(ctx, "SELECT id FROM deliveries")
//	...
//	rows, err := stmt.QueryContext(ctx)
//	defer dbx.CloseResources(ctx, mgr, conn, stmt, rows)
func CloseResources(ctx context.Context, mgr ManagedConnectionChecker, conn *sql.Conn, stmt *sql.Stmt, rows *sql.Rows) {
	if rows != nil {
		if err := rows.Close(); err != nil {
			logx.GetLogger().LogWarning(ctx, "Error closing result set", err)
		}
	}

	if stmt != nil {
		if err := stmt.Close(); err != nil {
			logx.GetLogger().LogWarning(ctx, "Error closing prepared statement", err)
		}
	}

	if conn == nil {
		return
	}

	if mgr != nil && mgr.IsConnectionManaged(conn) {
		return
	}

	if err := conn.Close(); err != nil {
		logx.GetLogger().LogWarning(ctx, "Error closing database connection", err)
	}
}
