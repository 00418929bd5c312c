package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for engine errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Database error codes
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED     ErrorCode = "DB_QUERY_FAILED"
)

// Catalog error codes
const (
	CATALOG_UNREADABLE ErrorCode = "CATALOG_UNREADABLE"
	SPEC_INVALID       ErrorCode = "SPEC_INVALID"
	TOOL_NOT_FOUND     ErrorCode = "TOOL_NOT_FOUND"
)

// Selector error codes
const (
	SELECTOR_SOURCE_FAILED ErrorCode = "SELECTOR_SOURCE_FAILED"
)

// Runner error codes
const (
	RUNNER_INVALID_PARAMETERS   ErrorCode = "RUNNER_INVALID_PARAMETERS"
	RUNNER_UNSUPPORTED_PLATFORM ErrorCode = "RUNNER_UNSUPPORTED_PLATFORM"
	RUNNER_TIMEOUT              ErrorCode = "RUNNER_TIMEOUT"
	RUNNER_EXECUTION_FAILED     ErrorCode = "RUNNER_EXECUTION_FAILED"
)

// Audit error codes
const (
	AUDIT_QUEUE_FULL   ErrorCode = "AUDIT_QUEUE_FULL"
	AUDIT_WRITE_FAILED ErrorCode = "AUDIT_WRITE_FAILED"
	AUDIT_SINK_STOPPED ErrorCode = "AUDIT_SINK_STOPPED"
)

// EngineError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints for
// error handling logic.
type EngineError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is an EngineError with the same Code.
func (e *EngineError) Is(target error) bool {
	var engineErr *EngineError
	if errors.As(target, &engineErr) {
		return e.Code == engineErr.Code
	}
	return false
}

// NewError creates a new non-retryable EngineError with the given code and message.
func NewError(code ErrorCode, message string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable EngineError with the given code
// and message. Use this for transient errors that may succeed on retry.
func NewRetryableError(code ErrorCode, message string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable EngineError that wraps an existing
// error. The wrapped error is accessible via Unwrap() for chain inspection.
func WrapError(code ErrorCode, message string, cause error) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// CodeOf extracts the ErrorCode from err if it is an EngineError.
// Returns an empty code when err is nil or not an EngineError.
func CodeOf(err error) ErrorCode {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	return ""
}
