// Package errors provides structured error types for txnguard.
// Every error carries a category, a code, a message and a retryable flag so
// the CLI and callers can tell bad input from bad configuration from a
// flaky store.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by where they were detected.
type ErrorCategory string

const (
	ErrCategoryInput         ErrorCategory = "INPUT"
	ErrCategoryConfiguration ErrorCategory = "CONFIGURATION"
	ErrCategoryStorage       ErrorCategory = "STORAGE"
	ErrCategoryOutput        ErrorCategory = "OUTPUT"
	ErrCategoryInternal      ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Input codes (malformed input)
	CodeMissingField     = "MISSING_FIELD"
	CodeInvalidTimestamp = "INVALID_TIMESTAMP"
	CodeInvalidAmount    = "INVALID_AMOUNT"
	CodeNegativeAmount   = "NEGATIVE_AMOUNT"
	CodeBadHeader        = "BAD_HEADER"
	CodeReadFailed       = "READ_FAILED"

	// Configuration codes
	CodeInvalidThreshold = "INVALID_THRESHOLD"
	CodeInvalidConfig    = "INVALID_CONFIG"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Output codes
	CodeWriteFailed = "WRITE_FAILED"

	// Internal codes
	CodeUnexpected     = "UNEXPECTED"
	CodeUnorderedInput = "UNORDERED_STREAM"
)

// TxnGuardError is the structured error type used throughout the system.
type TxnGuardError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *TxnGuardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *TxnGuardError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *TxnGuardError) Is(target error) bool {
	var t *TxnGuardError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new TxnGuardError.
func New(category ErrorCategory, code, message string) *TxnGuardError {
	return &TxnGuardError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new TxnGuardError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *TxnGuardError {
	return &TxnGuardError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *TxnGuardError) WithDetails(details map[string]interface{}) *TxnGuardError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var te *TxnGuardError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a TxnGuardError.
func GetCategory(err error) ErrorCategory {
	var te *TxnGuardError
	if errors.As(err, &te) {
		return te.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a TxnGuardError.
func GetCode(err error) string {
	var te *TxnGuardError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsMalformedInput reports whether err was raised for bad input records.
func IsMalformedInput(err error) bool {
	return GetCategory(err) == ErrCategoryInput
}

// IsConfiguration reports whether err was raised for bad configuration.
func IsConfiguration(err error) bool {
	return GetCategory(err) == ErrCategoryConfiguration
}

// isRetryable only treats transfers to and from object storage as transient.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewInputError(code, message string) *TxnGuardError {
	return New(ErrCategoryInput, code, message)
}

func NewConfigError(code, message string, cause error) *TxnGuardError {
	return Wrap(ErrCategoryConfiguration, code, message, cause)
}

func NewStorageError(code, message string, cause error) *TxnGuardError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewOutputError(message string, cause error) *TxnGuardError {
	return Wrap(ErrCategoryOutput, CodeWriteFailed, message, cause)
}

func NewInternalError(message string, cause error) *TxnGuardError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
