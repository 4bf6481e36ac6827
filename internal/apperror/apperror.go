// Package apperror defines the gateway's error taxonomy.
//
// Every error that crosses a layer boundary is either a plain wrapped error
// (an unexpected failure) or an *AppError carrying one of the sentinels below.
// Handlers use errors.Is against the sentinels to pick an HTTP status, and
// only ever show AppError.Message to the client.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation means the caller supplied missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrNotConnected means the store was used before a connection existed.
	// It signals a programming error and must not be retried.
	ErrNotConnected = errors.New("store not connected")
	// ErrConnection means the store transport could not be established.
	ErrConnection = errors.New("store connection failed")
	// ErrStoreOperation means a query or insert failed on a live connection.
	ErrStoreOperation = errors.New("store operation failed")
)

type AppError struct {
	Err     error  // sentinel, optionally joined with the underlying cause
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NotConnected reports use of a collection handle before ensureConnected succeeded.
func NotConnected() *AppError {
	return &AppError{
		Err:     ErrNotConnected,
		Message: "database not connected: call EnsureConnected first",
	}
}

// ConnectionFailed wraps a transport failure for the named backend.
// The cause stays reachable through errors.Is/errors.As but never
// appears in Message.
func ConnectionFailed(backend string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrConnection, cause),
		Message: fmt.Sprintf("could not connect to %s store", backend),
	}
}

// StoreOperation wraps a failed store round-trip. op reads like "listing snippets".
func StoreOperation(op string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrStoreOperation, cause),
		Message: fmt.Sprintf("store operation failed: %s", op),
	}
}
