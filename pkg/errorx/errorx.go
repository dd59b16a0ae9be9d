package errorx

import (
	"fmt"
)

// GENERAL ERROR:

// GeneralError - General App Error.
type GeneralError struct {
	message string
	err     error
}

// NewGeneralError - GeneralError constructor.
func NewGeneralError(msg string, args ...any) *GeneralError {
	return &GeneralError{message: fmt.Sprintf(msg, args...), err: nil}
}

// NewGeneralErrorWrapper - GeneralError constructor for wrapper of another error.
func NewGeneralErrorWrapper(err error, msg string, args ...any) *GeneralError {
	return &GeneralError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (ge *GeneralError) Error() string {
	if ge.err != nil {
		return fmt.Errorf("%s # Error wrap: %w", ge.message, ge.err).Error()
	}

	return ge.message
}

// Unwrap - return the wrapped error.
func (ge *GeneralError) Unwrap() error {
	return ge.err
}

// DATABASE ERROR

// DatabaseError - Database layer error.
type DatabaseError struct {
	message string
	err     error
}

// NewDatabaseError - DatabaseError constructor.
func NewDatabaseError(msg string, args ...any) *DatabaseError {
	return &DatabaseError{message: fmt.Sprintf(msg, args...), err: nil}
}

// NewDatabaseErrorWrapper - DatabaseError constructor for wrapper of another error.
func NewDatabaseErrorWrapper(err error, msg string, args ...any) *DatabaseError {
	return &DatabaseError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (de *DatabaseError) Error() string {
	if de.err != nil {
		return fmt.Errorf("%s: %w", de.message, de.err).Error()
	}

	return de.message
}

// Unwrap - return the wrapped error.
func (de *DatabaseError) Unwrap() error {
	return de.err
}

// CONNECTION ERROR

// ConnectionError is returned when a connection was requested before the manager
// was ever initialized and the lazy initialization failed.
type ConnectionError struct {
	message string
	err     error
}

// NewConnectionError - ConnectionError constructor for wrapper of another error.
func NewConnectionError(err error, msg string, args ...any) *ConnectionError {
	return &ConnectionError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (ce *ConnectionError) Error() string {
	if ce.err != nil {
		return fmt.Errorf("%s: %w", ce.message, ce.err).Error()
	}

	return ce.message
}

// Unwrap - return the wrapped error.
func (ce *ConnectionError) Unwrap() error {
	return ce.err
}

// TRANSACTION ERROR

// TransactionError describes why a transaction did not commit.
//
// Index is the position of the failing operation in the submitted list, or -1
// when the failure happened outside of any operation (begin, commit).
type TransactionError struct {
	TxID    int64
	Index   int
	message string
	err     error
}

// NewTransactionError - TransactionError constructor.
func NewTransactionError(txID int64, index int, err error, msg string, args ...any) *TransactionError {
	return &TransactionError{TxID: txID, Index: index, message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (te *TransactionError) Error() string {
	prefix := fmt.Sprintf("transaction %d", te.TxID)
	if te.Index >= 0 {
		prefix = fmt.Sprintf("%s, operation %d", prefix, te.Index)
	}

	if te.err != nil {
		return fmt.Errorf("%s: %s: %w", prefix, te.message, te.err).Error()
	}

	return fmt.Sprintf("%s: %s", prefix, te.message)
}

// Unwrap - return the wrapped error.
func (te *TransactionError) Unwrap() error {
	return te.err
}
