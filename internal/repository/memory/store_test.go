package memory

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/domain/ledgertest"
)

func newStore(t *testing.T) *Store {
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMemoryStore_Contract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) domain.Ledger {
		return newStore(t)
	})
}

func TestMemoryStore_ConcurrentDepositsAreAllApplied(t *testing.T) {
	store := newStore(t)
	account := ledgertest.OpenAccount(t, store, "Ada", "0")
	number, _ := account.Number()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := store.GetAccount(context.Background(), number)
			if !assert.NoError(t, err) {
				return
			}
			tx, err := a.Deposit(decimal.NewFromInt(2))
			if !assert.NoError(t, err) {
				return
			}
			_, err = store.SaveTransaction(context.Background(), tx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded := ledgertest.Reload(t, store, number)
	assert.True(t, decimal.NewFromInt(100).Equal(loaded.Balance()))

	history, err := store.ListTransactions(context.Background(), loaded)
	require.NoError(t, err)
	assert.Len(t, history, 50)
}
