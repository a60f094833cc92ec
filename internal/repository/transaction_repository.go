package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type transactionRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  *slog.Logger
}

func newTransactionRepository(db SQLExecutor, dialect Dialect, logger *slog.Logger) *transactionRepository {
	return &transactionRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

func (r *transactionRepository) insert(ctx context.Context, t *domain.Transaction, plan *domain.ApplyPlan) (int64, error) {
	query := `
		INSERT INTO transactions
		(date_time, type, source_account_fk, destination_account_fk, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var dest interface{}
	if plan.Destination != nil {
		dest = *plan.Destination
	}

	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query),
		t.Timestamp(),
		t.Type().String(),
		plan.Source,
		dest,
		t.Amount().String(),
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to create transaction",
			"type", t.Type().String(),
			"source_account_number", plan.Source,
			"destination_account_number", dest,
			"amount", t.Amount(),
			"error", err)
		return 0, errors.Persistence("failed to create transaction", err)
	}

	return id, nil
}

const selectTransactions = `
	SELECT id, date_time, type, source_account_fk, destination_account_fk, amount
	FROM transactions
`

func (r *transactionRepository) get(ctx context.Context, id int64) (*domain.StoredTransaction, error) {
	query := selectTransactions + ` WHERE id = $1`

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), id)
	if err != nil {
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.Persistence("failed to get transaction", err)
	}
	found, err := r.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.ErrTransactionNotFound
	}
	return found[0], nil
}

// listByAccount returns every row where number is the source or the
// destination, oldest first.
func (r *transactionRepository) listByAccount(ctx context.Context, number int64) ([]*domain.StoredTransaction, error) {
	query := selectTransactions + `
		WHERE source_account_fk = $1 OR destination_account_fk = $2
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), number, number)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_number", number, "error", err)
		return nil, errors.Persistence("failed to list transactions", err)
	}
	return r.scanRows(rows)
}

// scanRows drains and closes rows before any account lookup runs, since the
// SQLite pool has a single connection.
func (r *transactionRepository) scanRows(rows *sql.Rows) ([]*domain.StoredTransaction, error) {
	defer rows.Close()

	var out []*domain.StoredTransaction
	for rows.Next() {
		var (
			st          domain.StoredTransaction
			destination sql.NullInt64
			amountStr   string
		)
		if err := rows.Scan(&st.ID, &st.Timestamp, &st.Type, &st.Source, &destination, &amountStr); err != nil {
			return nil, errors.Persistence("failed to scan transaction", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").Wrap(err)
		}
		st.Amount = amount
		if destination.Valid {
			st.Destination = &destination.Int64
		}
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to read transactions", err)
	}
	return out, nil
}
