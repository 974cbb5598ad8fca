package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeNotFound, "player not found")
	require.Error(t, err)
	assert.Equal(t, "not_found: player not found", err.Error())
	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeValidation))
}

func TestNewf(t *testing.T) {
	err := Newf(CodeInvalidState, "cannot complete transfer in state %s", "Cancelled")
	assert.Equal(t, "invalid_state: cannot complete transfer in state Cancelled", err.Error())
}

func TestWrap(t *testing.T) {
	t.Run("nil yields nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("wrapped cause stays reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeInternal, "failed to load player")
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("has code walks the wrap chain", func(t *testing.T) {
		inner := New(CodeInsufficientFunds, "budget exceeded")
		outer := Wrap(inner, CodeInternal, "transfer failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeInsufficientFunds))
		assert.False(t, HasCode(outer, CodeNotFound))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad date")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))

	// the outermost code wins
	wrapped := Wrap(New(CodeNotFound, "missing"), CodeConflict, "raced")
	assert.Equal(t, CodeConflict, CodeOf(wrapped))

	// fmt wrapping is transparent
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("loading: %w", New(CodeNotFound, "missing"))))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvariantViolation, http.StatusConflict},
		{CodeInvalidState, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeInsufficientFunds, http.StatusUnprocessableEntity},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(New(tt.code, "x")))
		})
	}

	t.Run("uncoded errors are internal", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(errors.New("boom")))
	})
}
