// Package errors provides the application error type shared by every layer.
//
// Two tiers matter to callers of the topic graph builder:
//   - STORE errors: the graph database could not run or commit a transaction.
//     They are fatal for a seeding sequence and always propagate.
//   - VALIDATION errors: the call was rejected before any transaction was opened.
//
// A link whose endpoint does not exist is NOT an error; it is reported in the
// per-pair link report instead.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeStore      ErrorType = "STORE"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type      ErrorType
	Code      ErrorCode
	Message   string
	Operation string
	Retryable bool
	Err       error
}

// Error implements the error interface
func (e *AppError) Error() string {
	prefix := string(e.Type)
	if e.Code != "" {
		prefix = fmt.Sprintf("%s:%s", e.Type, e.Code)
	}
	if e.Operation != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, e.Operation)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidation creates a validation error
func NewValidation(code ErrorCode, message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeNotFound,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternalError,
		Message: message,
		Err:     err,
	}
}

// NewStoreError creates a graph store failure. Store errors abort the
// transaction they occurred in; nothing the transaction wrote is visible.
func NewStoreError(code ErrorCode, operation, message string, err error) error {
	return &AppError{
		Type:      ErrorTypeStore,
		Code:      code,
		Message:   message,
		Operation: operation,
		Retryable: code.retryable(),
		Err:       err,
	}
}

// NewPublishError creates an event delivery failure. Events are published
// after commit, so callers log these rather than fail the operation.
func NewPublishError(message string, retryable bool, err error) error {
	return &AppError{
		Type:      ErrorTypeInternal,
		Code:      CodeEventPublishFailed,
		Message:   message,
		Retryable: retryable,
		Err:       err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:      appErr.Type,
			Code:      appErr.Code,
			Message:   fmt.Sprintf("%s: %s", message, appErr.Message),
			Operation: appErr.Operation,
			Retryable: appErr.Retryable,
			Err:       appErr.Err,
		}
	}

	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternalError,
		Message: message,
		Err:     err,
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsStoreError checks if an error came from the graph store
func IsStoreError(err error) bool {
	return isType(err, ErrorTypeStore)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// IsRetryable reports whether the failed operation may succeed if repeated.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Retryable
}

// CodeOf returns the error code, or CodeInternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok && appErr.Code != "" {
		return appErr.Code
	}
	return CodeInternalError
}

func isType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}
