package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	withDetails := ErrInsufficientFunds.WithDetails("balance 10, amount 20")

	assert.Equal(t, "balance 10, amount 20", withDetails.Details)
	assert.Empty(t, ErrInsufficientFunds.Details)
	assert.True(t, Is(withDetails, ErrInsufficientFunds))
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := ErrPersistence.Wrap(cause)

	assert.True(t, Is(err, ErrPersistence))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "connection reset", err.Details)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIs_MatchesThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("load account 7: %w", ErrAccountNotFound)

	assert.True(t, Is(err, ErrAccountNotFound))
	assert.False(t, Is(err, ErrTransactionNotFound))
}

func TestPersistence(t *testing.T) {
	t.Run("wraps plain causes", func(t *testing.T) {
		err := Persistence("failed to save transaction", ErrAccountNotFound)

		assert.Equal(t, PersistenceFailed, err.Code)
		assert.True(t, Is(err, ErrPersistence))
		assert.True(t, Is(err, ErrAccountNotFound))
	})

	t.Run("keeps an existing persistence error", func(t *testing.T) {
		inner := Persistence("failed to update balance", stderrors.New("disk full"))
		outer := Persistence("failed to save transaction", inner)

		assert.Same(t, inner, outer)
	})
}

func TestAs(t *testing.T) {
	var appErr *AppError
	err := fmt.Errorf("wrapped: %w", ErrInvalidAmount)

	require.True(t, As(err, &appErr))
	assert.Equal(t, InvalidAmount, appErr.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err      *AppError
		expected int
	}{
		{ErrInvalidAmount, http.StatusBadRequest},
		{ErrInvalidTransfer, http.StatusBadRequest},
		{ErrSameAccountTransfer, http.StatusBadRequest},
		{ErrInvalidHolderName, http.StatusBadRequest},
		{ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrTransactionNotFound, http.StatusNotFound},
		{ErrTransactionAlreadySaved, http.StatusConflict},
		{ErrPersistence, http.StatusInternalServerError},
		{NewAppError(InternalError, "boom"), http.StatusInternalServerError},
		{ErrAccountNotSaved, http.StatusBadRequest},
		{ErrInvalidAccountNumber, http.StatusBadRequest},
		{ErrInvalidTransactionID, http.StatusBadRequest},
		{ErrCannotBeginTransaction, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.HTTPStatus())
		})
	}
}

func TestIs_DistinctSentinelsDoNotMatch(t *testing.T) {
	sentinels := []*AppError{
		ErrInvalidAmount,
		ErrInvalidTransfer,
		ErrSameAccountTransfer,
		ErrInvalidHolderName,
		ErrInsufficientFunds,
		ErrAccountNotFound,
		ErrTransactionNotFound,
		ErrAccountAlreadySaved,
		ErrTransactionAlreadySaved,
		ErrAccountNotSaved,
		ErrInvalidAccountNumber,
		ErrInvalidTransactionID,
		ErrPersistence,
		ErrCannotBeginTransaction,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				assert.True(t, Is(a, b), "%s should match itself", a.Code)
				continue
			}
			assert.False(t, Is(a, b), "%s should not match %s", a.Code, b.Code)
		}
	}

	assert.False(t, Is(NewAppError(InvalidInput, "bad body"), ErrAccountNotSaved))
	assert.False(t, Is(NewAppError(InvalidInput, "bad body"), ErrInvalidAccountNumber))
	assert.False(t, Is(NewAppError(InternalError, "boom"), ErrCannotBeginTransaction))
}
