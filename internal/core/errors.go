package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation"     // Invalid input
	ErrCatTransport  ErrorCategory = "transport"      // Pipe/socket read or write failure
	ErrCatProtocol   ErrorCategory = "protocol"       // Malformed crash stream content
	ErrCatPrereq     ErrorCategory = "missing_prereq" // Operation requires data not collected
	ErrCatResolve    ErrorCategory = "resolve"        // Frame symbol resolution failure
	ErrCatUpload     ErrorCategory = "upload"         // Report delivery failure
	ErrCatStorage    ErrorCategory = "storage"        // Archive/spool persistence failure
	ErrCatTimeout    ErrorCategory = "timeout"        // Operation timed out
	ErrCatSpawn      ErrorCategory = "spawn"          // Receiver/helper process creation failure
	ErrCatNotFound   ErrorCategory = "not_found"      // Resource not found
	ErrCatInternal   ErrorCategory = "internal"       // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrTransport creates a transport error.
func ErrTransport(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTransport,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrProtocol creates a protocol error. Protocol errors are never
// retryable: the stream that produced them is gone.
func ErrProtocol(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatProtocol,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrMissingPrereq creates an error for an operation attempted without
// the crash data it depends on.
func ErrMissingPrereq(operation, missing string) *DomainError {
	return &DomainError{
		Category:  ErrCatPrereq,
		Code:      CodeMissingPrereq,
		Message:   fmt.Sprintf("%s requires %s, which was not collected from the crashed process", operation, missing),
		Retryable: false,
		Details: map[string]interface{}{
			"operation": operation,
			"missing":   missing,
		},
	}
}

// ErrResolve creates a frame resolution error.
func ErrResolve(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatResolve,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrUpload creates an upload error.
func ErrUpload(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatUpload,
		Code:      "UPLOAD_FAILED",
		Message:   message,
		Retryable: true,
	}
}

// ErrStorage creates a storage error.
func ErrStorage(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatStorage,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrSpawn creates a process creation error.
func ErrSpawn(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatSpawn,
		Code:      "SPAWN_FAILED",
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      "INTERNAL",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeMissingPrereq    = "MISSING_PREREQ"
	CodeReportNotFound   = "REPORT_NOT_FOUND"
	CodeStreamTruncated  = "STREAM_TRUNCATED"
	CodeBadBlockPayload  = "BAD_BLOCK_PAYLOAD"
	CodeUnknownMarker    = "UNKNOWN_MARKER"
	CodeSocketUnusable   = "SOCKET_UNUSABLE"
	CodePipeClosed       = "PIPE_CLOSED"
	CodeResolverExec     = "RESOLVER_EXEC_FAILED"
	CodeResolverOutput   = "RESOLVER_BAD_OUTPUT"
	CodeArchiveCorrupt   = "ARCHIVE_CORRUPT"
	CodeSpoolUnwritable  = "SPOOL_UNWRITABLE"
	CodeEndpointRejected = "ENDPOINT_REJECTED"

	// Validation error codes
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeInvalidEndpoint = "INVALID_ENDPOINT"
	CodeInvalidTraceID  = "INVALID_TRACE_ID"
	CodeInvalidMode     = "INVALID_MODE"
)
