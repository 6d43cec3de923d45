package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for gateway operations.
type ErrorCode string

const (
	// ErrCodeTransport indicates a network or timeout failure talking to the
	// embedding service.
	ErrCodeTransport ErrorCode = "TRANSPORT"
	// ErrCodeInvalidEmbedding indicates a returned vector failed shape or
	// sanity validation.
	ErrCodeInvalidEmbedding ErrorCode = "INVALID_EMBEDDING"
	// ErrCodeExhaustedRetries indicates a permanent per-task failure after
	// retry and split.
	ErrCodeExhaustedRetries ErrorCode = "EXHAUSTED_RETRIES"
	// ErrCodeQueueTimeout indicates the ingestion buffer stayed full past the
	// configured offer timeout.
	ErrCodeQueueTimeout ErrorCode = "QUEUE_TIMEOUT"
	// ErrCodeQueueClosed indicates the ingestion queue has been shut down.
	ErrCodeQueueClosed ErrorCode = "QUEUE_CLOSED"
	// ErrCodeUpstreamEmbedFailure indicates query-time text embedding failed.
	ErrCodeUpstreamEmbedFailure ErrorCode = "UPSTREAM_EMBED_FAILURE"
	// ErrCodeStore indicates the vector or metadata store failed.
	ErrCodeStore ErrorCode = "STORE_ERROR"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// GatewayError represents a structured error for gateway operations.
type GatewayError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *GatewayError {
	return &GatewayError{Code: code, Message: msg, Cause: cause}
}

// New creates an error with a code and message.
func New(code ErrorCode, msg string) *GatewayError {
	return &GatewayError{Code: code, Message: msg}
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	if gwErr, ok := err.(*GatewayError); ok {
		return gwErr.Code == code
	}
	return false
}

// CodeOf extracts the error code from any error, falling back to the
// provided default when the error is not a GatewayError.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	if gwErr, ok := err.(*GatewayError); ok {
		return gwErr.Code
	}
	return defaultCode
}
