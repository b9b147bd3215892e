package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("operation failed")

	// Conversation errors
	ErrOrderIncomplete = errors.New("order is not complete")
	ErrOrderSubmission = errors.New("order submission failed")
	ErrGenerator       = errors.New("text generator failed")
	ErrConfiguration   = errors.New("invalid configuration")
)
