// Package errors provides structured error types for the Meridian SQL
// layer. All errors include a category, code, message, and retryable
// flag for consistent handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryMetadata   ErrorCategory = "METADATA"
	ErrCategoryAnalysis   ErrorCategory = "ANALYSIS"
	ErrCategoryRouting    ErrorCategory = "ROUTING"
	ErrCategoryStore      ErrorCategory = "STORE"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidMapping  = "INVALID_MAPPING"
	CodeInvalidRelation = "INVALID_RELATION"

	// Metadata codes
	CodeTableNotFound  = "TABLE_NOT_FOUND"
	CodeColumnNotFound = "COLUMN_NOT_FOUND"
	CodeSchemaConflict = "SCHEMA_CONFLICT"

	// Analysis codes
	CodeExpressionParse    = "EXPRESSION_PARSE_FAILED"
	CodeExpressionAnalysis = "EXPRESSION_ANALYSIS_FAILED"
	CodeUnknownFunction    = "UNKNOWN_FUNCTION"

	// Routing codes
	CodeMissingRoutingValue = "MISSING_ROUTING_VALUE"
	CodeInvalidShardCount   = "INVALID_SHARD_COUNT"

	// Store codes
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeCorruptMetadata  = "CORRUPT_METADATA"
	CodeVersionConflict  = "VERSION_CONFLICT"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// MeridianError is the structured error type used throughout the system.
type MeridianError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *MeridianError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *MeridianError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *MeridianError) Is(target error) bool {
	var t *MeridianError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new MeridianError.
func New(category ErrorCategory, code, message string) *MeridianError {
	return &MeridianError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new MeridianError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *MeridianError {
	return &MeridianError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *MeridianError) WithDetails(details map[string]interface{}) *MeridianError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var me *MeridianError
	if errors.As(err, &me) {
		return me.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a MeridianError.
func GetCategory(err error) ErrorCategory {
	var me *MeridianError
	if errors.As(err, &me) {
		return me.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a MeridianError.
func GetCode(err error) string {
	var me *MeridianError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Only transient
// store conditions qualify; a failed schema build never does.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStore && code == CodeStoreUnavailable:
		return true
	case category == ErrCategoryStore && code == CodeVersionConflict:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *MeridianError {
	return New(ErrCategoryValidation, code, message)
}

func NewMetadataError(code, message string) *MeridianError {
	return New(ErrCategoryMetadata, code, message)
}

func NewAnalysisError(code, message string, cause error) *MeridianError {
	return Wrap(ErrCategoryAnalysis, code, message, cause)
}

func NewRoutingError(code, message string) *MeridianError {
	return New(ErrCategoryRouting, code, message)
}

func NewStoreError(code, message string, cause error) *MeridianError {
	return Wrap(ErrCategoryStore, code, message, cause)
}

func NewInternalError(message string, cause error) *MeridianError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
