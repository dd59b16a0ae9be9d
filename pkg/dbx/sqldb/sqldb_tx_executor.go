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

//###################################
//#       SQL TX Executor           #
//###################################

var _ dbx.TransactionExecutor = (*TxExecutor)(nil)

// TxExecutor runs operations as one transaction on the managed connection.
// It implements dbx.TransactionExecutor.
type TxExecutor struct {
	mgr dbx.ConnectionManager
}

// NewTxExecutor - TxExecutor constructor.
func NewTxExecutor(mgr dbx.ConnectionManager) *TxExecutor {
	return &TxExecutor{mgr: mgr}
}

// txContext lives for the duration of one Run call.
type txContext struct {
	id   int64
	conn *sql.Conn
	tx   *sql.Tx
}

// Run executes the operations in order inside a single transaction.
//
// Behavior:
//   - Offline: no operation is invoked and dbx.ErrTransactionSkipped is returned.
//   - No connection could be borrowed: an error matching dbx.ErrOffline (or the
//     *errorx.ConnectionError of a failed lazy initialization) is returned.
//   - The first operation returning an error, or panicking, stops the sequence. The
//     transaction is rolled back and an *errorx.TransactionError carrying the operation
//     index is returned.
//   - When every operation succeeds the transaction is committed and nil is returned.
//
// Rollback failures are logged and never change the result. The managed connection is
// held exclusively for the whole call and is never closed.
//
// There is no way to abandon a transaction in flight: ctx bounds the individual statements
// issued through it, not the wait for the connection.
//
// Example Usage:
//
//	err := executor.Run(ctx,
//	    dbx.OperationFunc(func(ctx context.Context, q dbx.Querier) error {
//	        _, err := q.ExecContext(ctx, "UPDATE deliveries SET status = ? WHERE id = ?", "SHIPPED", id)
//	        return err
//	    }),
//	)
func (e *TxExecutor) Run(ctx context.Context, operations ...dbx.Operation) error {
	txID := dbx.GenerateRandomInt64Id()

	if e.mgr.IsOfflineMode() {
		logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Offline mode - transaction %d skipped (%d operations)", txID, len(operations)))
		return dbx.ErrTransactionSkipped
	}

	conn, release, err := e.mgr.Acquire(ctx)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("No database connection available for transaction %d", txID), err)
		return err
	}
	defer release()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error starting transaction %d", txID), err)
		return errorx.NewTransactionError(txID, -1, err, "error starting transaction")
	}

	txCtx := &txContext{id: txID, conn: conn, tx: tx}

	for idx, op := range operations {
		if err := runOperation(ctx, txCtx, op); err != nil {
			logx.GetLogger().LogError(ctx, fmt.Sprintf("Transaction %d failed at operation %d, rolling back", txID, idx), err)
			txCtx.rollback(ctx)

			return errorx.NewTransactionError(txID, idx, err, "operation failed")
		}
	}

	if err := tx.Commit(); err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error committing transaction %d", txID), err)
		txCtx.rollback(ctx)

		return errorx.NewTransactionError(txID, -1, err, "error during transaction commit")
	}

	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("Transaction %d committed (%d operations)", txID, len(operations)))

	return nil
}

// ExecuteInTransaction runs the operations like Run and reports true when they were
// committed or skipped because the manager is offline.
func (e *TxExecutor) ExecuteInTransaction(ctx context.Context, operations ...dbx.Operation) bool {
	err := e.Run(ctx, operations...)

	return err == nil || errors.Is(err, dbx.ErrTransactionSkipped)
}

func runOperation(ctx context.Context, txCtx *txContext, op dbx.Operation) (err error) {
	if op == nil {
		return errors.New("nil operation")
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("operation panicked: %v", r)
		}
	}()

	return op.Execute(ctx, txCtx.tx)
}

func (t *txContext) rollback(ctx context.Context) {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error Rolling Back transaction: %d", t.id), err)
		return
	}

	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("Rollback transaction: %d", t.id))
}
