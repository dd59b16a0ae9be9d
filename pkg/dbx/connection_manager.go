package dbx

import (
	"context"
	"database/sql"
)

// ConnectionManager owns the single physical database connection of the process.
//
// This interface abstracts the lifecycle of the managed connection: establishing it,
// handing it out, validating it periodically, replacing it on request and closing it.
// It is the only source of truth for whether callers may attempt database work.
//
// Responsibilities of ConnectionManager include:
//   - Holding at most one live connection and its health-check timestamp.
//   - Switching between online and offline mode. Connectivity failures are absorbed
//     and reported as boolean outcomes or a nil connection, never as raw driver errors.
//   - Serializing exclusive use of the connection through Acquire, so transactions
//     never interleave on the shared session.
//
// Callers never close the handle they receive; use IsConnectionManaged to tell the
// managed connection apart from an ad-hoc one.
type ConnectionManager interface {
	Initialize(ctx context.Context) bool
	GetConnection(ctx context.Context) (*sql.Conn, error)
	Acquire(ctx context.Context) (conn *sql.Conn, release func(), err error)
	TryReconnect(ctx context.Context) bool
	IsOfflineMode() bool
	IsConnectionManaged(conn *sql.Conn) bool
	GetConnectionStatus(ctx context.Context) ConnectionStatus
	Shutdown(ctx context.Context)
}
