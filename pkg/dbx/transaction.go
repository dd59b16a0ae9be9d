package dbx

import (
	"context"
	"database/sql"
)

// Querier is the statement surface handed to operations. It is satisfied by *sql.Tx,
// *sql.Conn and *sql.DB, so the same operation can run inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Operation is a unit of work executed against the borrowed connection.
//
// Operations are opaque to the executor: a nil error means success, anything else
// stops the transaction and rolls it back.
type Operation interface {
	Execute(ctx context.Context, q Querier) error
}

// OperationFunc adapts a function to the Operation interface.
type OperationFunc func(ctx context.Context, q Querier) error

// Execute calls f(ctx, q).
func (f OperationFunc) Execute(ctx context.Context, q Querier) error {
	return f(ctx, q)
}

// BoolOperation adapts an operation reporting success as a boolean.
// A false result without an error is reported as ErrOperationFailed.
func BoolOperation(fn func(ctx context.Context, q Querier) (bool, error)) Operation {
	return OperationFunc(func(ctx context.Context, q Querier) error {
		ok, err := fn(ctx, q)
		if err != nil {
			return err
		}

		if !ok {
			return ErrOperationFailed
		}

		return nil
	})
}

// TransactionExecutor runs an ordered list of operations as one all-or-nothing unit
// on the managed connection.
//
// Responsibilities of TransactionExecutor include:
//   - Skipping the work entirely, and reporting success, while the manager is offline.
//   - Running the operations strictly in order on one borrowed connection.
//   - Rolling back on the first failing operation, committing when all succeed.
//   - Never closing the shared connection.
type TransactionExecutor interface {
	// Run executes the operations and returns nil on commit, ErrTransactionSkipped when
	// offline, or the reason the transaction was rolled back.
	Run(ctx context.Context, operations ...Operation) error
	// ExecuteInTransaction returns true when the operations were committed or skipped offline.
	ExecuteInTransaction(ctx context.Context, operations ...Operation) bool
}
