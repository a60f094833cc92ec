package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-ledger/internal/errors"
)

func TestTransfer_Success(t *testing.T) {
	a := restored(t, 1, "Ada", "200")
	b := restored(t, 2, "Grace", "0")

	result, err := Transfer(a, b, dec("50"))
	require.NoError(t, err)

	assert.True(t, dec("150").Equal(a.Balance()))
	assert.True(t, dec("50").Equal(b.Balance()))
	assert.True(t, dec("150").Equal(result.SourceBalance))
	assert.True(t, dec("50").Equal(result.DestinationBalance))

	tx := result.Transaction
	assert.Equal(t, TransactionTypeTransfer, tx.Type())
	assert.Same(t, a, tx.Source())
	assert.Same(t, b, tx.Destination())

	require.Len(t, a.Transactions(), 1)
	require.Len(t, b.Transactions(), 1)
	assert.Same(t, tx, a.Transactions()[0])
	assert.Same(t, tx, b.Transactions()[0])

	assert.True(t, tx.IsDestination(b))
	assert.False(t, tx.IsDestination(a))
}

func TestAccountTransfer_DelegatesToCoordinator(t *testing.T) {
	a := restored(t, 1, "Ada", "10")
	b := restored(t, 2, "Grace", "5")

	tx, err := a.Transfer(dec("10"), b)
	require.NoError(t, err)

	assert.True(t, a.Balance().IsZero())
	assert.True(t, dec("15").Equal(b.Balance()))
	assert.True(t, tx.IsDestination(b))
}

func TestTransfer_SumIsInvariant(t *testing.T) {
	for _, amt := range []string{"0.01", "1", "33.33", "99.99", "100"} {
		a := restored(t, 1, "Ada", "100")
		b := restored(t, 2, "Grace", "17.5")
		sum := a.Balance().Add(b.Balance())

		_, err := Transfer(a, b, dec(amt))
		require.NoError(t, err, amt)

		assert.True(t, sum.Equal(a.Balance().Add(b.Balance())), amt)
		assert.True(t, dec("100").Sub(dec(amt)).Equal(a.Balance()), amt)
		assert.True(t, dec("17.5").Add(dec(amt)).Equal(b.Balance()), amt)
		assert.Len(t, a.Transactions(), 1)
		assert.Len(t, b.Transactions(), 1)
	}
}

func TestTransfer_Failures(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		dest     func(src *Account) *Account
		expected error
	}{
		{
			name:     "insufficient funds",
			amount:   "100.01",
			dest:     func(*Account) *Account { return restored(t, 2, "Grace", "0") },
			expected: errors.ErrInsufficientFunds,
		},
		{
			name:     "missing destination",
			amount:   "10",
			dest:     func(*Account) *Account { return nil },
			expected: errors.ErrInvalidTransfer,
		},
		{
			name:     "zero amount",
			amount:   "0",
			dest:     func(*Account) *Account { return restored(t, 2, "Grace", "0") },
			expected: errors.ErrInvalidAmount,
		},
		{
			name:     "same account",
			amount:   "10",
			dest:     func(src *Account) *Account { return src },
			expected: errors.ErrSameAccountTransfer,
		},
		{
			name:     "same stored account loaded twice",
			amount:   "10",
			dest:     func(*Account) *Account { return restored(t, 1, "Ada", "100") },
			expected: errors.ErrSameAccountTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := restored(t, 1, "Ada", "100")
			b := tt.dest(a)

			result, err := Transfer(a, b, dec(tt.amount))

			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
			assert.True(t, dec("100").Equal(a.Balance()))
			assert.Empty(t, a.Transactions())
			if b != nil && b != a {
				assert.Empty(t, b.Transactions())
			}
		})
	}
}
