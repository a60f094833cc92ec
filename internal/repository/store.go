package repository

import (
	"cmp"
	"context"
	"database/sql"
	"log/slog"
	"slices"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// Store implements domain.Ledger over database/sql. A Store built by
// WithTransaction shares one database transaction across its repositories.
type Store struct {
	executor     SQLExecutor
	dialect      Dialect
	logger       *slog.Logger
	accounts     *accountRepository
	transactions *transactionRepository
}

var _ domain.Ledger = (*Store)(nil)

func NewStore(db *sql.DB, dialect Dialect, logger *slog.Logger) *Store {
	return newStore(db, dialect, logger)
}

func newStore(executor SQLExecutor, dialect Dialect, logger *slog.Logger) *Store {
	return &Store{
		executor:     executor,
		dialect:      dialect,
		logger:       logger,
		accounts:     newAccountRepository(executor, dialect, logger),
		transactions: newTransactionRepository(executor, dialect, logger),
	}
}

// WithTransaction executes a function within a database transaction
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) error {
	// Only sql.DB can begin transactions
	db, ok := s.executor.(DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Persistence("failed to begin transaction", err)
	}

	txStore := newStore(&TxWrapper{Tx: tx}, s.dialect, s.logger)

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Persistence("failed to commit transaction", err)
	}
	return nil
}

func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) (int64, error) {
	if account.IsPersisted() {
		return 0, errors.ErrAccountAlreadySaved
	}
	return s.accounts.insert(ctx, account)
}

func (s *Store) GetAccount(ctx context.Context, number int64) (*domain.Account, error) {
	return s.accounts.get(ctx, number)
}

// SaveTransaction inserts t and applies its balance deltas atomically. Any
// failure rolls back every write and comes back as a persistence error.
func (s *Store) SaveTransaction(ctx context.Context, t *domain.Transaction) (int64, error) {
	plan, err := domain.PlanApply(t)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.WithTransaction(ctx, func(txStore *Store) error {
		// Lock accounts in number order, then insert the row so its foreign
		// key checks hit rows this transaction already holds.
		deltas := slices.Clone(plan.Deltas)
		slices.SortFunc(deltas, func(a, b domain.BalanceDelta) int {
			return cmp.Compare(a.AccountNumber, b.AccountNumber)
		})
		for _, delta := range deltas {
			if _, err := txStore.accounts.applyDelta(ctx, delta.AccountNumber, delta.Amount); err != nil {
				return err
			}
		}

		var err error
		id, err = txStore.transactions.insert(ctx, t, plan)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to save transaction",
			"type", t.Type().String(),
			"source_account_number", plan.Source,
			"amount", t.Amount(),
			"error", err)
		return 0, errors.Persistence("failed to save transaction", err)
	}

	s.logger.Info("Transaction saved successfully",
		"transaction_id", id,
		"type", t.Type().String(),
		"source_account_number", plan.Source,
		"amount", t.Amount())
	return id, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	st, err := s.transactions.get(ctx, id)
	if err != nil {
		return nil, err
	}

	cache := domain.NewAccountCache(s.GetAccount)
	return cache.Rebuild(ctx, *st)
}

func (s *Store) ListTransactions(ctx context.Context, account *domain.Account) ([]*domain.Transaction, error) {
	number, ok := account.Number()
	if !ok {
		return nil, errors.ErrAccountNotSaved
	}

	stored, err := s.transactions.listByAccount(ctx, number)
	if err != nil {
		return nil, err
	}

	cache := domain.NewAccountCache(s.GetAccount, account)
	out := make([]*domain.Transaction, 0, len(stored))
	for _, st := range stored {
		t, err := cache.Rebuild(ctx, *st)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return nil
	}
	return db.PingContext(ctx)
}
