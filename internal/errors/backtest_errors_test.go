package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBacktestError_Error(t *testing.T) {
	err := NewValidationError("resolver", "validate_series", "candle series is empty")
	assert.Equal(t, "[VALIDATION:resolver] validate_series: candle series is empty", err.Error())

	err = err.WithContext("index", 3).WithContext("a", "b")
	assert.Equal(t, "[VALIDATION:resolver] validate_series: candle series is empty (a=b, index=3)", err.Error())
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorCategoryData, "csv", "load"))

	base := fmt.Errorf("boom")
	err := WrapError(base, ErrorCategoryData, "csv", "load").WithMessage("read failed")
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "read failed: boom")
	assert.False(t, err.IsRetryable())
	assert.False(t, err.IsFatal())
}

func TestIsCategory(t *testing.T) {
	inner := NewTimeoutError("sweep", "join", context.DeadlineExceeded)
	wrapped := fmt.Errorf("strategy W: %w", inner)

	assert.True(t, IsCategory(wrapped, ErrorCategoryTimeout))
	assert.False(t, IsCategory(wrapped, ErrorCategoryData))
	assert.True(t, inner.IsFatal())
	assert.True(t, inner.IsRetryable())
	assert.Equal(t, ErrorCategoryTimeout, CategoryOf(wrapped))
	assert.Equal(t, ErrorCategoryTemporary, CategoryOf(fmt.Errorf("plain")))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"context deadline exceeded", ErrorCategoryTimeout},
		{"dial tcp: connection refused", ErrorCategoryNetwork},
		{"invalid api key", ErrorCategoryCredentials},
		{"too many requests", ErrorCategoryRateLimit},
		{"malformed candle", ErrorCategoryValidation},
		{"something odd", ErrorCategoryTemporary},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := CategorizeError(fmt.Errorf("%s", tt.msg), "bybit", "get_klines")
			assert.Equal(t, tt.want, err.Category)
		})
	}

	existing := NewConfigurationError("config", "load", "bad")
	assert.Same(t, existing, CategorizeError(existing, "x", "y"))
}
