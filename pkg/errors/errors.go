package errors

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found or is in the wrong state
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates malformed or missing input
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates concurrent-update contention or a duplicate
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeInvalidTransition indicates a state machine edge that is not permitted
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"

	// ErrorTypeEmptyBill indicates a bill with nothing to charge
	ErrorTypeEmptyBill ErrorType = "EMPTY_BILL"

	// ErrorTypeStoreUnavailable indicates the ledger store could not be reached
	ErrorTypeStoreUnavailable ErrorType = "STORE_UNAVAILABLE"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// Postgres SQLSTATE codes that signal contention rather than a broken request.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
	pqQueryCanceled        = "57014"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewInvalidTransitionError creates a new invalid transition error
func NewInvalidTransitionError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidTransition,
		Message: message,
	}
}

// NewEmptyBillError creates a new empty bill error
func NewEmptyBillError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeEmptyBill,
		Message: message,
	}
}

// NewStoreUnavailableError creates a new store unavailable error
func NewStoreUnavailableError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeStoreUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the AppError type anywhere in the chain, or "" for foreign errors.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// FromStoreError classifies a database error raised while performing op.
// AppErrors pass through untouched.
func FromStoreError(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return &AppError{Type: ErrorTypeConflict, Message: op + ": duplicate key", Err: err}
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return &AppError{Type: ErrorTypeConflict, Message: op + ": concurrent update", Err: err}
		}
		// 57014 is raised by statement_timeout; 57P* by server shutdown
		if pqErr.Code.Class() == "08" ||
			pqErr.Code == pqQueryCanceled ||
			strings.HasPrefix(string(pqErr.Code), "57P") {
			return NewStoreUnavailableError(op, err)
		}
		return NewInternalError(op, err)
	}

	var netErr net.Error
	if stderrors.Is(err, driver.ErrBadConn) ||
		stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, context.Canceled) ||
		stderrors.As(err, &netErr) {
		return NewStoreUnavailableError(op, err)
	}

	return NewInternalError(op, err)
}
