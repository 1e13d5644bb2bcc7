package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{InvalidInput, http.StatusBadRequest},
		{InvalidAmount, http.StatusBadRequest},
		{InsufficientFunds, http.StatusUnprocessableEntity},
		{DuplicateAccount, http.StatusConflict},
		{DuplicateTransaction, http.StatusConflict},
		{DuplicateUser, http.StatusConflict},
		{ConcurrencyConflict, http.StatusConflict},
		{NotFound, http.StatusNotFound},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{InternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, NewAppError(tt.code, "x").HTTPStatus())
		})
	}
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	detailed := ErrInsufficientFunds.WithDetails("balance 10.00, debit 60.00")

	assert.Equal(t, "balance 10.00, debit 60.00", detailed.Details)
	assert.Empty(t, ErrInsufficientFunds.Details)
	assert.Equal(t, ErrInsufficientFunds.Code, detailed.Code)
}

func TestErrorString(t *testing.T) {
	err := NewAppErrorf(NotFound, "account %d not found", 42)
	assert.Equal(t, "not_found: account 42 not found", err.Error())
}
