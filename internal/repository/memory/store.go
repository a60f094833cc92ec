package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type accountRecord struct {
	holderName string
	balance    decimal.Decimal
}

// Store is an in-process domain.Ledger. A mutex guards every operation, and
// SaveTransaction stages its writes so a failed apply leaves nothing behind.
type Store struct {
	mu           sync.Mutex
	accounts     map[int64]*accountRecord
	transactions []domain.StoredTransaction
	nextAccount  int64
	nextTx       int64
	logger       *slog.Logger
}

var _ domain.Ledger = (*Store)(nil)

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		accounts: make(map[int64]*accountRecord),
		logger:   logger,
	}
}

func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) (int64, error) {
	if account.IsPersisted() {
		return 0, errors.ErrAccountAlreadySaved
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccount++
	number := s.nextAccount
	s.accounts[number] = &accountRecord{
		holderName: account.HolderName(),
		balance:    account.Balance(),
	}

	s.logger.Info("Account created successfully", "account_number", number)
	return number, nil
}

func (s *Store) GetAccount(ctx context.Context, number int64) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(number)
}

func (s *Store) getLocked(number int64) (*domain.Account, error) {
	rec, ok := s.accounts[number]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return domain.RestoreAccount(number, rec.holderName, rec.balance, nil)
}

func (s *Store) SaveTransaction(ctx context.Context, t *domain.Transaction) (int64, error) {
	plan, err := domain.PlanApply(t)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage new balances; commit only once every delta is valid.
	staged := make(map[int64]decimal.Decimal, len(plan.Deltas))
	for _, delta := range plan.Deltas {
		balance, ok := staged[delta.AccountNumber]
		if !ok {
			rec, found := s.accounts[delta.AccountNumber]
			if !found {
				s.logger.Error("Failed to save transaction", "account_number", delta.AccountNumber, "error", errors.ErrAccountNotFound)
				return 0, errors.Persistence("failed to save transaction", errors.ErrAccountNotFound)
			}
			balance = rec.balance
		}

		balance = balance.Add(delta.Amount)
		if balance.IsNegative() {
			s.logger.Warn("Stored balance would go negative", "account_number", delta.AccountNumber, "delta", delta.Amount)
			return 0, errors.Persistence("failed to save transaction", errors.ErrInsufficientFunds)
		}
		staged[delta.AccountNumber] = balance
	}

	s.nextTx++
	id := s.nextTx
	s.transactions = append(s.transactions, domain.StoredTransaction{
		ID:          id,
		Timestamp:   t.Timestamp(),
		Type:        t.Type().String(),
		Source:      plan.Source,
		Destination: plan.Destination,
		Amount:      t.Amount(),
	})
	for number, balance := range staged {
		s.accounts[number].balance = balance
	}

	s.logger.Info("Transaction saved successfully", "transaction_id", id, "type", t.Type().String(), "amount", t.Amount())
	return id, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.transactions {
		if st.ID == id {
			return domain.NewAccountCache(s.load).Rebuild(ctx, st)
		}
	}
	return nil, errors.ErrTransactionNotFound
}

func (s *Store) ListTransactions(ctx context.Context, account *domain.Account) ([]*domain.Transaction, error) {
	number, ok := account.Number()
	if !ok {
		return nil, errors.ErrAccountNotSaved
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cache := domain.NewAccountCache(s.load, account)
	var out []*domain.Transaction
	for _, st := range s.transactions {
		if st.Source != number && (st.Destination == nil || *st.Destination != number) {
			continue
		}
		t, err := cache.Rebuild(ctx, st)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// load is the cache loader; callers already hold the mutex.
func (s *Store) load(_ context.Context, number int64) (*domain.Account, error) {
	return s.getLocked(number)
}
