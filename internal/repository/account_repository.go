package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type accountRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  *slog.Logger
}

func newAccountRepository(db SQLExecutor, dialect Dialect, logger *slog.Logger) *accountRepository {
	return &accountRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

func (r *accountRepository) insert(ctx context.Context, account *domain.Account) (int64, error) {
	query := `
		INSERT INTO accounts (holder_name, balance)
		VALUES ($1, $2)
		RETURNING number
	`

	var number int64
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query),
		account.HolderName(),
		account.Balance().String(),
	).Scan(&number)
	if err != nil {
		r.logger.Error("Failed to create account", "holder_name", account.HolderName(), "error", err)
		return 0, errors.Persistence("failed to create account", err)
	}

	r.logger.Info("Account created successfully", "account_number", number)
	return number, nil
}

func (r *accountRepository) get(ctx context.Context, number int64) (*domain.Account, error) {
	query := `SELECT number, holder_name, balance FROM accounts WHERE number = $1`

	return r.scanAccount(ctx, r.dialect.rebind(query), number)
}

func (r *accountRepository) getForUpdate(ctx context.Context, number int64) (*domain.Account, error) {
	query := `SELECT number, holder_name, balance FROM accounts WHERE number = $1`

	return r.scanAccount(ctx, r.dialect.rebind(r.dialect.forUpdate(query)), number)
}

func (r *accountRepository) scanAccount(ctx context.Context, query string, number int64) (*domain.Account, error) {
	var (
		id         int64
		holderName string
		balanceStr string
	)

	err := r.db.QueryRowContext(ctx, query, number).Scan(&id, &holderName, &balanceStr)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_number", number)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_number", number, "error", err)
		return nil, errors.Persistence("failed to get account", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "account_number", number, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").Wrap(err)
	}

	return domain.RestoreAccount(id, holderName, balance, nil)
}

func (r *accountRepository) setBalance(ctx context.Context, number int64, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1 WHERE number = $2`

	result, err := r.db.ExecContext(ctx, r.dialect.rebind(query), balance.String(), number)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_number", number, "error", err)
		return errors.Persistence("failed to update account balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Persistence("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_number", number)
		return errors.ErrAccountNotFound
	}

	r.logger.Debug("Account balance updated", "account_number", number, "new_balance", balance)
	return nil
}

// applyDelta reads the stored balance under the dialect's row lock and writes
// balance+delta back. A result below zero is refused.
func (r *accountRepository) applyDelta(ctx context.Context, number int64, delta decimal.Decimal) (decimal.Decimal, error) {
	account, err := r.getForUpdate(ctx, number)
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := account.Balance().Add(delta)
	if newBalance.IsNegative() {
		r.logger.Warn("Stored balance would go negative",
			"account_number", number,
			"balance", account.Balance(),
			"delta", delta)
		return decimal.Zero, errors.ErrInsufficientFunds.WithDetails("stored balance: " + account.Balance().String())
	}

	if err := r.setBalance(ctx, number, newBalance); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}
