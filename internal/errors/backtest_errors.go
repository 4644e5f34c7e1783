package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the kind of failure a backtest run can hit
type ErrorCategory string

const (
	// Errors that abort the whole run
	ErrorCategoryFatal         ErrorCategory = "FATAL"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryCredentials   ErrorCategory = "CREDENTIALS"

	// Errors scoped to one data source or one strategy
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	ErrorCategoryData       ErrorCategory = "DATA"
	ErrorCategoryStrategy   ErrorCategory = "STRATEGY"
	ErrorCategoryStorage    ErrorCategory = "STORAGE"
	ErrorCategoryExchange   ErrorCategory = "EXCHANGE"

	// Transient errors
	ErrorCategoryNetwork   ErrorCategory = "NETWORK"
	ErrorCategoryTimeout   ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"
	ErrorCategoryTemporary ErrorCategory = "TEMPORARY"
)

// BacktestError represents a categorized error with context
type BacktestError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BacktestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for error unwrapping
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *BacktestError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should stop the whole sweep
func (e *BacktestError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal ||
		e.Category == ErrorCategoryCredentials ||
		e.Category == ErrorCategoryConfiguration ||
		e.Category == ErrorCategoryTimeout
}

// NewBacktestError creates a new categorized error
func NewBacktestError(category ErrorCategory, component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with backtest error context
func WrapError(err error, category ErrorCategory, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	return &BacktestError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithMessage replaces the default message
func (e *BacktestError) WithMessage(message string) *BacktestError {
	e.Message = message
	return e
}

// WithContext adds context information to the error
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *BacktestError) WithRetryable(retryable bool) *BacktestError {
	e.Retryable = retryable
	return e
}

// IsCategory reports whether any error in err's chain is a BacktestError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var btErr *BacktestError
	if errors.As(err, &btErr) {
		return btErr.Category == category
	}
	return false
}

// CategoryOf returns the category of err, or TEMPORARY for uncategorized errors
func CategoryOf(err error) ErrorCategory {
	var btErr *BacktestError
	if errors.As(err, &btErr) {
		return btErr.Category
	}
	return ErrorCategoryTemporary
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryTemporary, ErrorCategoryRateLimit:
		return true
	default:
		return false
	}
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	var btErr *BacktestError
	if errors.As(err, &btErr) {
		return btErr
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	}

	if strings.Contains(errMsg, "api key") || strings.Contains(errMsg, "api secret") ||
		strings.Contains(errMsg, "authentication") || strings.Contains(errMsg, "unauthorized") {
		return WrapError(err, ErrorCategoryCredentials, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	}

	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "malformed") {
		return WrapError(err, ErrorCategoryValidation, component, operation)
	}

	return WrapError(err, ErrorCategoryTemporary, component, operation)
}

// Common error constructors
func NewValidationError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryConfiguration, component, operation, message)
}

func NewDataError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryData, component, operation)
}

func NewStrategyError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryStrategy, component, operation)
}

func NewStorageError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryStorage, component, operation)
}

func NewTimeoutError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryTimeout, component, operation)
}

func NewNetworkError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryNetwork, component, operation)
}
