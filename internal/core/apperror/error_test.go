package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil))
	})

	t.Run("app error passes through", func(t *testing.T) {
		orig := NewNotFound("material", "x")
		assert.Same(t, orig, Wrap(orig))
	})

	t.Run("wrapped app error passes through", func(t *testing.T) {
		orig := NewEmptyInvoice()
		err := fmt.Errorf("create: %w", orig)
		assert.Equal(t, err, Wrap(err))
		assert.True(t, HasCode(err, CodeEmptyInvoice))
	})

	t.Run("plain error becomes database error", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause)
		assert.True(t, HasCode(err, CodeDatabase))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(err))
	})
}

func TestInsufficientStockDetails(t *testing.T) {
	err := NewInsufficientStock("id-1", "ALUMINIO", "15.0000", "12.0000")

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, "15.0000", err.Details["requested"])
	assert.Equal(t, "12.0000", err.Details["available"])
	assert.Contains(t, err.Message, "ALUMINIO")
}

func TestGetHTTPStatus_UnknownError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}
