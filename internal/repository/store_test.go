package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/domain/ledgertest"
	"bank-ledger/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	dsn := SQLiteDSN(filepath.Join(t.TempDir(), "ledger.db"))

	require.NoError(t, Migrate(SQLite, dsn, discardLogger()))

	db, err := Open(SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, SQLite, discardLogger())
}

func TestSQLiteStore_Contract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) domain.Ledger {
		return newSQLiteStore(t)
	})
}

func TestMigrate_IsIdempotent(t *testing.T) {
	dsn := SQLiteDSN(filepath.Join(t.TempDir(), "ledger.db"))

	require.NoError(t, Migrate(SQLite, dsn, discardLogger()))
	require.NoError(t, Migrate(SQLite, dsn, discardLogger()))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	account := ledgertest.OpenAccount(t, store, "Ada", "0")
	number, _ := account.Number()

	boom := errors.NewAppError(errors.InternalError, "boom")
	err := store.WithTransaction(ctx, func(tx *Store) error {
		if err := tx.accounts.setBalance(ctx, number, dec("500")); err != nil {
			return err
		}
		return boom
	})

	assert.True(t, errors.Is(err, boom))
	loaded := ledgertest.Reload(t, store, number)
	assert.True(t, loaded.Balance().IsZero())
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	account := ledgertest.OpenAccount(t, store, "Ada", "0")
	number, _ := account.Number()

	assert.Panics(t, func() {
		store.WithTransaction(ctx, func(tx *Store) error {
			if err := tx.accounts.setBalance(ctx, number, dec("500")); err != nil {
				return err
			}
			panic("boom")
		})
	})

	loaded := ledgertest.Reload(t, store, number)
	assert.True(t, loaded.Balance().IsZero())
}

func TestWithTransaction_CannotNest(t *testing.T) {
	store := newSQLiteStore(t)

	err := store.WithTransaction(context.Background(), func(tx *Store) error {
		return tx.WithTransaction(context.Background(), func(*Store) error { return nil })
	})

	assert.True(t, errors.Is(err, errors.ErrCannotBeginTransaction))
	assert.False(t, errors.Is(err, errors.NewAppError(errors.InternalError, "boom")))
}

func TestSetBalance_MissingAccount(t *testing.T) {
	store := newSQLiteStore(t)

	err := store.accounts.setBalance(context.Background(), 77, dec("1"))
	assert.True(t, errors.Is(err, errors.ErrAccountNotFound))
}

func TestStoredTypeTagIsCaseInsensitive(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	account := ledgertest.OpenAccount(t, store, "Ada", "10")
	number, _ := account.Number()

	_, err := store.executor.ExecContext(ctx,
		`INSERT INTO transactions (date_time, type, source_account_fk, amount) VALUES (CURRENT_TIMESTAMP, ?1, ?2, ?3)`,
		"WITHDRAW", number, "1")
	require.NoError(t, err)
	_, err = store.executor.ExecContext(ctx,
		`INSERT INTO transactions (date_time, type, source_account_fk, amount) VALUES (CURRENT_TIMESTAMP, ?1, ?2, ?3)`,
		"interest", number, "2")
	require.NoError(t, err)

	history, err := store.ListTransactions(ctx, account)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.TransactionTypeWithdraw, history[1].Type())
	assert.Equal(t, domain.TransactionTypeOther, history[2].Type())
}

func TestDialect(t *testing.T) {
	query := `SELECT 1 FROM accounts WHERE number = $1`

	assert.Equal(t, `SELECT 1 FROM accounts WHERE number = ?1`, SQLite.rebind(query))
	assert.Equal(t, query, Postgres.rebind(query))
	assert.Equal(t, query+" FOR UPDATE", Postgres.forUpdate(query))
	assert.Equal(t, query, SQLite.forUpdate(query))

	d, err := DialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}
