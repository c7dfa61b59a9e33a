// Package errors provides structured error types for the Flowsync application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and preview server
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - PARSE_*: Diagram text parsing failures
//   - INVALID_*: Input validation failures
//   - DUPLICATE_* / DANGLING_*: Model consistency violations
//   - NOT_FOUND: Resource not found
//   - STORE_* / INTERNAL_*: Infrastructure errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDuplicateID, "node %q already exists", id)
//	if errors.Is(err, errors.ErrCodeDuplicateID) {
//	    // Handle consistency error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStore, origErr, "saving draft %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Parsing errors
	ErrCodeParse              Code = "PARSE_ERROR"
	ErrCodeUnsupportedDialect Code = "UNSUPPORTED_DIALECT"

	// Model consistency errors
	ErrCodeDuplicateID       Code = "DUPLICATE_ID"
	ErrCodeDanglingReference Code = "DANGLING_REFERENCE"
	ErrCodeSelfConnection    Code = "SELF_CONNECTION"
	ErrCodeDuplicateEdge     Code = "DUPLICATE_EDGE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Infrastructure errors
	ErrCodeStore    Code = "STORE_ERROR"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code onto the status the preview server
// should answer with. Unknown codes map to 500.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeParse, ErrCodeUnsupportedDialect, ErrCodeInvalidInput, ErrCodeInvalidFormat:
		return 400
	case ErrCodeDuplicateID, ErrCodeDuplicateEdge, ErrCodeSelfConnection:
		return 409
	case ErrCodeDanglingReference:
		return 422
	case ErrCodeNotFound:
		return 404
	default:
		return 500
	}
}
