package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	wrapped := ErrStoreFailure.WithCause(fmt.Errorf("connection refused"))
	assert.True(t, errors.Is(wrapped, ErrStoreFailure))
	assert.False(t, errors.Is(wrapped, ErrInvalidRequest))
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := ErrProviderUnavailable.WithCause(cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestWithMessagefKeepsCode(t *testing.T) {
	err := ErrModelNotApproved.WithMessagef("model %s rejected", "bad-model")
	assert.True(t, errors.Is(err, ErrModelNotApproved))
	assert.Contains(t, err.Error(), "bad-model")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "invalid request", err: ErrInvalidRequest, expected: http.StatusBadRequest},
		{name: "wrapped store failure", err: fmt.Errorf("ctx: %w", ErrStoreFailure), expected: http.StatusBadGateway},
		{name: "plain error", err: fmt.Errorf("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "ragd.dimension_mismatch", Code(ErrDimensionMismatch))
	assert.Equal(t, "ragd.internal", Code(fmt.Errorf("boom")))
}
