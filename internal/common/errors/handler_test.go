package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Error(string, map[string]interface{}) {}

func TestErrorHandler_RetriesLeft(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		jobRetries int
		budget     int
		want       int
	}{
		{"non-retryable code", 0, 3, 0, 0},
		{"last attempt", 0, 1, 3, 0},
		{"job has fewer attempts than budget", 0, 2, 3, 1},
		{"budget bounds fresh job", 0, 10, 2, 2},
		{"worker cap below budget", 1, 10, 3, 1},
		{"worker cap above budget", 5, 10, 3, 3},
		{"no attempts reported", 0, 0, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewErrorHandler(nopLogger{}).WithMaxRetries(tt.maxRetries)
			assert.Equal(t, tt.want, h.retriesLeft(tt.jobRetries, tt.budget))
		})
	}
}

func TestErrorHandler_NormalizeError(t *testing.T) {
	h := NewErrorHandler(nopLogger{})

	stdErr := NewInvalidQueryError("bad")
	assert.Same(t, stdErr, h.normalizeError(stdErr))

	got := h.normalizeError(assert.AnError)
	assert.Equal(t, ErrCodeInternal, got.Code)
	assert.Equal(t, assert.AnError.Error(), got.Details)
}
