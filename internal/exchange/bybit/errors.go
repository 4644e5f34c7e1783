package bybit

import (
	"errors"
	"fmt"
	"net/http"

	bterrors "github.com/ducminhle1904/pattern-backtester/internal/errors"
)

// BybitError represents a Bybit API error with additional context
type BybitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *BybitError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Bybit API error %d: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Bybit error codes the downloader reacts to
const (
	ErrCodeInvalidParameter  = 10001
	ErrCodeInvalidAPIKey     = 10003
	ErrCodeInvalidSignature  = 10004
	ErrCodeRateLimitExceeded = 10006
	ErrCodeSymbolNotFound    = 110009
)

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	var bybitErr *BybitError
	if !errors.As(err, &bybitErr) {
		return false
	}
	switch bybitErr.Code {
	case ErrCodeRateLimitExceeded,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsAuthenticationError checks if the error is related to authentication
func IsAuthenticationError(err error) bool {
	var bybitErr *BybitError
	if errors.As(err, &bybitErr) {
		return bybitErr.Code == ErrCodeInvalidAPIKey || bybitErr.Code == ErrCodeInvalidSignature
	}
	return false
}

// IsRateLimitError checks if the error is due to rate limiting
func IsRateLimitError(err error) bool {
	var bybitErr *BybitError
	return errors.As(err, &bybitErr) && bybitErr.Code == ErrCodeRateLimitExceeded
}

// NewBybitError creates a new BybitError
func NewBybitError(code int, message string, details ...string) *BybitError {
	err := &BybitError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// ParseAPIError extracts error information from the API response
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return NewBybitError(retCode, retMsg)
}

// Categorize converts an exchange error into a categorized backtest error
func Categorize(operation string, err error) error {
	if err == nil {
		return nil
	}

	category := bterrors.ErrorCategoryExchange
	switch {
	case IsRateLimitError(err):
		category = bterrors.ErrorCategoryRateLimit
	case IsAuthenticationError(err):
		category = bterrors.ErrorCategoryCredentials
	case !isBybitError(err):
		category = bterrors.ErrorCategoryNetwork
	}
	return bterrors.WrapError(err, category, "bybit", operation).WithRetryable(IsRetryableError(err))
}

func isBybitError(err error) bool {
	var bybitErr *BybitError
	return errors.As(err, &bybitErr)
}
