package service

import (
	"context"
	"log/slog"

	"bank-ledger/internal/domain"
)

type AccountService struct {
	ledger domain.Ledger
	logger *slog.Logger
}

func NewAccountService(ledger domain.Ledger, logger *slog.Logger) *AccountService {
	return &AccountService{
		ledger: ledger,
		logger: logger,
	}
}

// OpenAccount creates an account with a zero balance and returns it as
// stored.
func (s *AccountService) OpenAccount(ctx context.Context, holderName string) (*domain.Account, error) {
	s.logger.Info("Creating account", "holder_name", holderName)

	account, err := domain.NewAccount(holderName)
	if err != nil {
		return nil, err
	}

	number, err := s.ledger.SaveAccount(ctx, account)
	if err != nil {
		s.logger.Error("Failed to save account", "holder_name", holderName, "error", err)
		return nil, err
	}

	saved, err := account.WithNumber(number)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created successfully", "account_number", number)
	return saved, nil
}

// GetAccount loads an account together with its transaction history.
func (s *AccountService) GetAccount(ctx context.Context, number int64) (*domain.Account, error) {
	s.logger.Debug("Getting account", "account_number", number)

	account, err := s.ledger.GetAccount(ctx, number)
	if err != nil {
		return nil, err
	}

	history, err := s.ledger.ListTransactions(ctx, account)
	if err != nil {
		return nil, err
	}
	if err := account.AttachHistory(history); err != nil {
		return nil, err
	}
	return account, nil
}

// History returns the account and its transactions, oldest first.
func (s *AccountService) History(ctx context.Context, number int64) (*domain.Account, []*domain.Transaction, error) {
	account, err := s.GetAccount(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	return account, account.Transactions(), nil
}
