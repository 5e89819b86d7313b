package errors

import "net/http"

// ErrorCode represents a unique error code for specific error scenarios
type ErrorCode string

// Validation error codes
const (
	CodeInvalidName    ErrorCode = "INVALID_NAME"
	CodeUnknownClass   ErrorCode = "UNKNOWN_CLASS"
	CodeInvalidCatalog ErrorCode = "INVALID_CATALOG"
	CodeInvalidInput   ErrorCode = "INVALID_INPUT"
	CodeInvalidConfig  ErrorCode = "INVALID_CONFIG"
)

// Store error codes
const (
	CodeStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
	CodeStoreAuth            ErrorCode = "STORE_AUTH"
	CodeTransactionFailed    ErrorCode = "TRANSACTION_FAILED"
	CodeCircuitOpen          ErrorCode = "CIRCUIT_OPEN"
	CodeUnsupportedStatement ErrorCode = "UNSUPPORTED_STATEMENT"
)

// Infrastructure error codes
const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeEventPublishFailed ErrorCode = "EVENT_PUBLISH_FAILED"
)

func (c ErrorCode) retryable() bool {
	switch c {
	case CodeStoreUnavailable, CodeCircuitOpen:
		return true
	default:
		return false
	}
}

// HTTPStatusCode returns the appropriate HTTP status code for an error code
func (c ErrorCode) HTTPStatusCode() int {
	switch c {
	case CodeInvalidName, CodeUnknownClass, CodeInvalidCatalog, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeStoreUnavailable, CodeCircuitOpen:
		return http.StatusServiceUnavailable
	case CodeStoreAuth, CodeTransactionFailed, CodeUnsupportedStatement:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus maps any error to the status code an HTTP handler should send.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return CodeOf(err).HTTPStatusCode()
}
