package gormstore

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// Store implements domain.Ledger on MySQL through GORM.
type Store struct {
	client *Client
	logger *slog.Logger
}

var _ domain.Ledger = (*Store)(nil)

func NewStore(client *Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) (int64, error) {
	if account.IsPersisted() {
		return 0, errors.ErrAccountAlreadySaved
	}

	m := accountModel{
		HolderName: account.HolderName(),
		Balance:    account.Balance(),
	}
	if err := s.client.DB().WithContext(ctx).Create(&m).Error; err != nil {
		s.logger.Error("Failed to create account", "holder_name", account.HolderName(), "error", err)
		return 0, errors.Persistence("failed to create account", err)
	}

	s.logger.Info("Account created successfully", "account_number", m.Number)
	return m.Number, nil
}

func (s *Store) GetAccount(ctx context.Context, number int64) (*domain.Account, error) {
	return getAccount(s.client.DB().WithContext(ctx), number)
}

func getAccount(db *gorm.DB, number int64) (*domain.Account, error) {
	var m accountModel
	if err := db.Where("number = ?", number).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrAccountNotFound
		}
		return nil, errors.Persistence("failed to get account", err)
	}
	return domain.RestoreAccount(m.Number, m.HolderName, m.Balance, nil)
}

// SaveTransaction locks the affected accounts in number order, applies the
// deltas and inserts the row inside one GORM transaction.
func (s *Store) SaveTransaction(ctx context.Context, t *domain.Transaction) (int64, error) {
	plan, err := domain.PlanApply(t)
	if err != nil {
		return 0, err
	}

	row := transactionModel{
		DateTime:             t.Timestamp(),
		Type:                 t.Type().String(),
		SourceAccountFK:      plan.Source,
		DestinationAccountFK: plan.Destination,
		Amount:               t.Amount(),
	}

	err = s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		numbers := make([]int64, 0, len(plan.Deltas))
		for _, delta := range plan.Deltas {
			numbers = append(numbers, delta.AccountNumber)
		}

		var locked []accountModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("number IN ?", numbers).
			Order("number").
			Find(&locked).Error; err != nil {
			return err
		}
		balances := make(map[int64]decimal.Decimal, len(locked))
		for _, m := range locked {
			balances[m.Number] = m.Balance
		}

		for _, delta := range plan.Deltas {
			balance, ok := balances[delta.AccountNumber]
			if !ok {
				return errors.ErrAccountNotFound
			}
			balance = balance.Add(delta.Amount)
			if balance.IsNegative() {
				return errors.ErrInsufficientFunds
			}
			balances[delta.AccountNumber] = balance
		}

		for number, balance := range balances {
			if err := tx.Model(&accountModel{}).
				Where("number = ?", number).
				Update("balance", balance).Error; err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Create(&row).Error
	})
	if err != nil {
		s.logger.Error("Failed to save transaction",
			"type", t.Type().String(),
			"source_account_number", plan.Source,
			"amount", t.Amount(),
			"error", err)
		return 0, errors.Persistence("failed to save transaction", err)
	}

	s.logger.Info("Transaction saved successfully", "transaction_id", row.ID, "type", row.Type, "amount", row.Amount)
	return row.ID, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	db := s.client.DB().WithContext(ctx)

	var row transactionModel
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, errors.Persistence("failed to get transaction", err)
	}

	return s.cache(db).Rebuild(ctx, stored(row))
}

func (s *Store) ListTransactions(ctx context.Context, account *domain.Account) ([]*domain.Transaction, error) {
	number, ok := account.Number()
	if !ok {
		return nil, errors.ErrAccountNotSaved
	}
	db := s.client.DB().WithContext(ctx)

	var rows []transactionModel
	if err := db.Where("source_account_fk = ? OR destination_account_fk = ?", number, number).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, errors.Persistence("failed to list transactions", err)
	}

	cache := s.cache(db, account)
	out := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := cache.Rebuild(ctx, stored(row))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) cache(db *gorm.DB, seed ...*domain.Account) *domain.AccountCache {
	return domain.NewAccountCache(func(_ context.Context, number int64) (*domain.Account, error) {
		return getAccount(db, number)
	}, seed...)
}

func stored(row transactionModel) domain.StoredTransaction {
	return domain.StoredTransaction{
		ID:          row.ID,
		Timestamp:   row.DateTime,
		Type:        row.Type,
		Source:      row.SourceAccountFK,
		Destination: row.DestinationAccountFK,
		Amount:      row.Amount,
	}
}
