package dbx

import (
	"github.com/pkg/errors"
)

// Failure kinds of the connection core. They are matched with errors.Is and are
// never surfaced to callers as a different boolean outcome.
var (
	// ErrInvalidConfig - the configuration cannot be used to open a connection.
	ErrInvalidConfig = errors.New("invalid database configuration")
	// ErrDriverMissing - the configured driver is not registered.
	ErrDriverMissing = errors.New("database driver not found")
	// ErrConnectFailure - network, auth or connect string failure while connecting.
	ErrConnectFailure = errors.New("database connection failed")
	// ErrValidationFailure - a held connection failed its validation probe.
	ErrValidationFailure = errors.New("database connection validation failed")
	// ErrOffline - no connection is available.
	ErrOffline = errors.New("database is offline")
	// ErrTransactionSkipped - the transaction was not executed because the manager is in offline mode.
	ErrTransactionSkipped = errors.New("transaction skipped in offline mode")
	// ErrOperationFailed - an operation reported failure without a more specific error.
	ErrOperationFailed = errors.New("operation reported failure")
)
