// Package ledgertest holds the behaviour every domain.Ledger implementation
// must share. Store packages run it from their own tests.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// Run exercises newLedger against the ledger contract. newLedger must return
// an empty store for every call.
func Run(t *testing.T, newLedger func(t *testing.T) domain.Ledger) {
	tests := []struct {
		name string
		fn   func(t *testing.T, ledger domain.Ledger)
	}{
		{"AccountRoundTrip", testAccountRoundTrip},
		{"SaveAccountTwice", testSaveAccountTwice},
		{"GetMissingAccount", testGetMissingAccount},
		{"Deposit", testDeposit},
		{"Withdraw", testWithdraw},
		{"Transfer", testTransfer},
		{"GetTransactionLoadsEachEndpoint", testGetTransactionLoadsEachEndpoint},
		{"GetMissingTransaction", testGetMissingTransaction},
		{"ListTransactionsOrder", testListTransactionsOrder},
		{"StaleBalanceRollsBack", testStaleBalanceRollsBack},
		{"MissingDestinationRollsBack", testMissingDestinationRollsBack},
		{"RejectsResave", testRejectsResave},
		{"RejectsUnsavedAccounts", testRejectsUnsavedAccounts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newLedger(t))
		})
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// OpenAccount saves a new account and funds it with a deposit when balance is
// positive. The returned account is freshly loaded from the store.
func OpenAccount(t *testing.T, ledger domain.Ledger, holderName, balance string) *domain.Account {
	t.Helper()
	ctx := context.Background()

	account, err := domain.NewAccount(holderName)
	require.NoError(t, err)

	number, err := ledger.SaveAccount(ctx, account)
	require.NoError(t, err)
	require.Positive(t, number)

	if dec(balance).IsPositive() {
		saved, err := ledger.GetAccount(ctx, number)
		require.NoError(t, err)
		tx, err := saved.Deposit(dec(balance))
		require.NoError(t, err)
		_, err = ledger.SaveTransaction(ctx, tx)
		require.NoError(t, err)
	}

	return Reload(t, ledger, number)
}

func Reload(t *testing.T, ledger domain.Ledger, number int64) *domain.Account {
	t.Helper()
	account, err := ledger.GetAccount(context.Background(), number)
	require.NoError(t, err)
	return account
}

func numberOf(t *testing.T, a *domain.Account) int64 {
	t.Helper()
	n, ok := a.Number()
	require.True(t, ok)
	return n
}

func assertBalance(t *testing.T, ledger domain.Ledger, number int64, expected string) {
	t.Helper()
	account := Reload(t, ledger, number)
	assert.True(t, dec(expected).Equal(account.Balance()),
		"account %d: expected balance %s, got %s", number, expected, account.Balance())
}

func testAccountRoundTrip(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	account, err := domain.NewAccount("Ada Lovelace")
	require.NoError(t, err)

	number, err := ledger.SaveAccount(ctx, account)
	require.NoError(t, err)

	loaded, err := ledger.GetAccount(ctx, number)
	require.NoError(t, err)

	n, ok := loaded.Number()
	assert.True(t, ok)
	assert.Equal(t, number, n)
	assert.Equal(t, "Ada Lovelace", loaded.HolderName())
	assert.True(t, account.Balance().Equal(loaded.Balance()))

	other, err := domain.NewAccount("Grace Hopper")
	require.NoError(t, err)
	otherNumber, err := ledger.SaveAccount(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, number, otherNumber)
}

func testSaveAccountTwice(t *testing.T, ledger domain.Ledger) {
	account := OpenAccount(t, ledger, "Ada", "0")

	_, err := ledger.SaveAccount(context.Background(), account)
	assert.True(t, errors.Is(err, errors.ErrAccountAlreadySaved))
}

func testGetMissingAccount(t *testing.T, ledger domain.Ledger) {
	_, err := ledger.GetAccount(context.Background(), 424242)
	assert.True(t, errors.Is(err, errors.ErrAccountNotFound), "got %v", err)
}

func testDeposit(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	account := OpenAccount(t, ledger, "Ada", "0")

	tx, err := account.Deposit(dec("100.25"))
	require.NoError(t, err)
	id, err := ledger.SaveTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Positive(t, id)

	assertBalance(t, ledger, numberOf(t, account), "100.25")

	stored, err := ledger.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeDeposit, stored.Type())
	assert.True(t, dec("100.25").Equal(stored.Amount()))
	assert.Nil(t, stored.Destination())
	assert.WithinDuration(t, tx.Timestamp(), stored.Timestamp(), time.Second)
	assert.Equal(t, time.UTC, stored.Timestamp().Location())
}

func testWithdraw(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	account := OpenAccount(t, ledger, "Ada", "100")

	tx, err := account.Withdraw(dec("30"))
	require.NoError(t, err)
	_, err = ledger.SaveTransaction(ctx, tx)
	require.NoError(t, err)

	assertBalance(t, ledger, numberOf(t, account), "70")

	history, err := ledger.ListTransactions(ctx, Reload(t, ledger, numberOf(t, account)))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.TransactionTypeWithdraw, history[1].Type())
	assert.True(t, dec("30").Equal(history[1].Amount()))
}

func testTransfer(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	a := OpenAccount(t, ledger, "Ada", "200")
	b := OpenAccount(t, ledger, "Grace", "0")

	result, err := domain.Transfer(a, b, dec("50"))
	require.NoError(t, err)
	_, err = ledger.SaveTransaction(ctx, result.Transaction)
	require.NoError(t, err)

	assertBalance(t, ledger, numberOf(t, a), "150")
	assertBalance(t, ledger, numberOf(t, b), "50")

	aHistory, err := ledger.ListTransactions(ctx, a)
	require.NoError(t, err)
	bHistory, err := ledger.ListTransactions(ctx, b)
	require.NoError(t, err)

	require.Len(t, aHistory, 2, "funding deposit and transfer")
	require.Len(t, bHistory, 1)

	sent := aHistory[1]
	received := bHistory[0]
	sentID, _ := sent.ID()
	receivedID, _ := received.ID()
	assert.Equal(t, sentID, receivedID)

	assert.Equal(t, domain.TransactionTypeTransfer, received.Type())
	assert.True(t, received.IsDestination(b))
	assert.False(t, received.IsDestination(a))
	assert.False(t, sent.IsDestination(a))
	assert.Same(t, a, sent.Source(), "history reuses the listed account")
	assert.Same(t, b, received.Destination())
}

func testGetTransactionLoadsEachEndpoint(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	a := OpenAccount(t, ledger, "Ada", "10")
	b := OpenAccount(t, ledger, "Grace", "0")

	tx, err := a.Transfer(dec("4"), b)
	require.NoError(t, err)
	id, err := ledger.SaveTransaction(ctx, tx)
	require.NoError(t, err)

	stored, err := ledger.GetTransaction(ctx, id)
	require.NoError(t, err)

	require.NotNil(t, stored.Destination())
	assert.Equal(t, numberOf(t, a), numberOf(t, stored.Source()))
	assert.Equal(t, numberOf(t, b), numberOf(t, stored.Destination()))
	assert.Equal(t, "Ada", stored.Source().HolderName())
	assert.Equal(t, "Grace", stored.Destination().HolderName())
}

func testGetMissingTransaction(t *testing.T, ledger domain.Ledger) {
	_, err := ledger.GetTransaction(context.Background(), 987654)
	assert.True(t, errors.Is(err, errors.ErrTransactionNotFound), "got %v", err)
}

func testListTransactionsOrder(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	a := OpenAccount(t, ledger, "Ada", "0")
	b := OpenAccount(t, ledger, "Grace", "0")

	steps := []func() (*domain.Transaction, error){
		func() (*domain.Transaction, error) { return a.Deposit(dec("10")) },
		func() (*domain.Transaction, error) { return a.Withdraw(dec("1")) },
		func() (*domain.Transaction, error) { return a.Transfer(dec("2"), b) },
		func() (*domain.Transaction, error) { return b.Transfer(dec("1"), a) },
	}
	for _, step := range steps {
		tx, err := step()
		require.NoError(t, err)
		_, err = ledger.SaveTransaction(ctx, tx)
		require.NoError(t, err)
	}

	history, err := ledger.ListTransactions(ctx, Reload(t, ledger, numberOf(t, a)))
	require.NoError(t, err)
	require.Len(t, history, 4)

	expected := []domain.TransactionType{
		domain.TransactionTypeDeposit,
		domain.TransactionTypeWithdraw,
		domain.TransactionTypeTransfer,
		domain.TransactionTypeTransfer,
	}
	var previous int64
	for i, tx := range history {
		assert.Equal(t, expected[i], tx.Type())
		id, ok := tx.ID()
		require.True(t, ok)
		assert.Greater(t, id, previous)
		previous = id
	}
	assert.False(t, history[2].IsDestination(a))
	assert.True(t, history[3].IsDestination(a))

	assertBalance(t, ledger, numberOf(t, a), "8")
	assertBalance(t, ledger, numberOf(t, b), "1")
}

// A second copy of the account withdraws against a balance that has already
// been spent. The guarded balance update is rejected and no row is written.
func testStaleBalanceRollsBack(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	account := OpenAccount(t, ledger, "Ada", "100")
	number := numberOf(t, account)
	stale := Reload(t, ledger, number)

	first, err := account.Withdraw(dec("80"))
	require.NoError(t, err)
	_, err = ledger.SaveTransaction(ctx, first)
	require.NoError(t, err)

	second, err := stale.Withdraw(dec("80"))
	require.NoError(t, err, "in-memory balance still shows 100")
	_, err = ledger.SaveTransaction(ctx, second)

	assert.True(t, errors.Is(err, errors.ErrPersistence), "got %v", err)
	assertBalance(t, ledger, number, "20")

	history, err := ledger.ListTransactions(ctx, Reload(t, ledger, number))
	require.NoError(t, err)
	assert.Len(t, history, 2, "funding deposit and first withdrawal only")
}

func testMissingDestinationRollsBack(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	account := OpenAccount(t, ledger, "Ada", "100")
	number := numberOf(t, account)

	ghost, err := domain.RestoreAccount(number+1000, "Nobody", decimal.Zero, nil)
	require.NoError(t, err)

	tx, err := account.Transfer(dec("40"), ghost)
	require.NoError(t, err)
	_, err = ledger.SaveTransaction(ctx, tx)

	assert.True(t, errors.Is(err, errors.ErrPersistence), "got %v", err)
	assertBalance(t, ledger, number, "100")

	history, err := ledger.ListTransactions(ctx, Reload(t, ledger, number))
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func testRejectsResave(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	account := OpenAccount(t, ledger, "Ada", "0")

	tx, err := account.Deposit(dec("5"))
	require.NoError(t, err)
	id, err := ledger.SaveTransaction(ctx, tx)
	require.NoError(t, err)

	_, err = ledger.SaveTransaction(ctx, tx.Persisted(id))
	assert.True(t, errors.Is(err, errors.ErrTransactionAlreadySaved))
	assertBalance(t, ledger, numberOf(t, account), "5")
}

func testRejectsUnsavedAccounts(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	unsaved, err := domain.NewAccount("Ada")
	require.NoError(t, err)

	tx, err := unsaved.Deposit(dec("5"))
	require.NoError(t, err)
	_, err = ledger.SaveTransaction(ctx, tx)
	assert.True(t, errors.Is(err, errors.ErrAccountNotSaved))

	_, err = ledger.ListTransactions(ctx, unsaved)
	assert.Error(t, err)

	saved := OpenAccount(t, ledger, "Grace", "10")
	transfer, err := saved.Transfer(dec("1"), unsaved)
	require.NoError(t, err)
	_, err = ledger.SaveTransaction(ctx, transfer)
	assert.True(t, errors.Is(err, errors.ErrAccountNotSaved))
	assertBalance(t, ledger, numberOf(t, saved), "10")
}
