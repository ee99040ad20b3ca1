package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Creation(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewValidationError("test validation error", cause)

	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "test validation error", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.NotNil(t, err.Context)
}

func TestDomainError_WithContext(t *testing.T) {
	err := NewProcessError("test error", nil)

	err = err.WithContext("component", "api-server")
	err = err.WithContext("pid", 12345)

	assert.Equal(t, "api-server", err.Context["component"])
	assert.Equal(t, 12345, err.Context["pid"])
}

func TestDomainError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		error    *DomainError
		expected string
	}{
		{
			name:     "error without cause",
			error:    NewValidationError("test message", nil),
			expected: "validation: test message",
		},
		{
			name:     "error with cause",
			error:    NewProcessError("test message", errors.New("cause")),
			expected: "process: test message: cause",
		},
		{
			name:     "degraded error",
			error:    NewDegradedError("not answering", nil),
			expected: "degraded: not answering",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Error())
		})
	}
}

func TestDomainError_TypeChecking(t *testing.T) {
	tests := []struct {
		err     error
		checker func(error) bool
	}{
		{NewValidationError("m", nil), IsValidationError},
		{NewNotFoundError("m", nil), IsNotFoundError},
		{NewProcessError("m", nil), IsProcessError},
		{NewDiscoveryError("m", nil), IsDiscoveryError},
		{NewTimeoutError("m", nil), IsTimeoutError},
		{NewDegradedError("m", nil), IsDegradedError},
		{NewConflictError("m", nil), IsConflictError},
		{NewIOError("m", nil), IsIOError},
	}

	for _, tt := range tests {
		assert.True(t, tt.checker(tt.err))
		assert.False(t, tt.checker(errors.New("plain error")))
	}

	assert.False(t, IsTimeoutError(NewProcessError("m", nil)))
}

func TestDomainError_TypeCheckingThroughWrapping(t *testing.T) {
	inner := NewTimeoutError("wait window expired", nil)
	wrapped := fmt.Errorf("startup aborted: %w", inner)

	assert.True(t, IsTimeoutError(wrapped))
	assert.False(t, IsProcessError(wrapped))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewIOError("io failed", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorCollection(t *testing.T) {
	collection := NewErrorCollection()

	assert.False(t, collection.HasErrors())
	assert.NoError(t, collection.ToError())

	collection.Add(nil)
	assert.False(t, collection.HasErrors())

	first := NewProcessError("component web-frontend failed to stop", nil)
	collection.Add(first)
	collection.Add(NewProcessError("component api-server failed to stop", nil))

	require.True(t, collection.HasErrors())
	assert.Len(t, collection.Errors, 2)
	assert.Contains(t, collection.Error(), "2 errors occurred")
	assert.Error(t, collection.ToError())
}

func TestErrorCollection_SingleError(t *testing.T) {
	collection := NewErrorCollection()
	collection.Add(NewTimeoutError("grace period expired", nil))

	assert.Equal(t, "timeout: grace period expired", collection.Error())
}
