package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/events"
)

type TransactionService struct {
	ledger    domain.Ledger
	publisher events.Publisher
	logger    *slog.Logger
}

func NewTransactionService(ledger domain.Ledger, publisher events.Publisher, logger *slog.Logger) *TransactionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TransactionService{
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
	}
}

// Result is a committed transaction and the source balance it left behind.
type Result struct {
	Transaction   *domain.Transaction
	SourceBalance decimal.Decimal
}

type TransferRequest struct {
	SourceAccountNumber      int64
	DestinationAccountNumber int64
	Amount                   decimal.Decimal
}

func (s *TransactionService) Deposit(ctx context.Context, number int64, amount decimal.Decimal) (*Result, error) {
	s.logger.Info("Processing deposit", "account_number", number, "amount", amount)

	account, err := s.ledger.GetAccount(ctx, number)
	if err != nil {
		return nil, err
	}

	tx, err := account.Deposit(amount)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, tx, account)
}

func (s *TransactionService) Withdraw(ctx context.Context, number int64, amount decimal.Decimal) (*Result, error) {
	s.logger.Info("Processing withdrawal", "account_number", number, "amount", amount)

	account, err := s.ledger.GetAccount(ctx, number)
	if err != nil {
		return nil, err
	}

	tx, err := account.Withdraw(amount)
	if err != nil {
		s.logger.Warn("Withdrawal rejected", "account_number", number, "amount", amount, "error", err)
		return nil, err
	}
	return s.commit(ctx, tx, account)
}

func (s *TransactionService) Transfer(ctx context.Context, req *TransferRequest) (*domain.TransferResult, error) {
	s.logger.Info("Processing transfer",
		"source_account_number", req.SourceAccountNumber,
		"destination_account_number", req.DestinationAccountNumber,
		"amount", req.Amount)

	if req.SourceAccountNumber == req.DestinationAccountNumber {
		return nil, errors.ErrSameAccountTransfer
	}

	source, err := s.ledger.GetAccount(ctx, req.SourceAccountNumber)
	if err != nil {
		return nil, err
	}
	destination, err := s.ledger.GetAccount(ctx, req.DestinationAccountNumber)
	if err != nil {
		return nil, err
	}

	result, err := domain.Transfer(source, destination, req.Amount)
	if err != nil {
		s.logger.Warn("Transfer rejected",
			"source_account_number", req.SourceAccountNumber,
			"destination_account_number", req.DestinationAccountNumber,
			"error", err)
		return nil, err
	}

	committed, err := s.commit(ctx, result.Transaction, source)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer completed successfully", "transaction_id", transactionID(committed.Transaction))
	return &domain.TransferResult{
		Transaction:        committed.Transaction,
		SourceBalance:      result.SourceBalance,
		DestinationBalance: result.DestinationBalance,
	}, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.ledger.GetTransaction(ctx, id)
}

// commit persists tx and publishes it. A failed save leaves the in-memory
// account ahead of the store; it is request scoped and is simply dropped.
// A failed publish is logged only, since the transaction is already durable.
func (s *TransactionService) commit(ctx context.Context, tx *domain.Transaction, source *domain.Account) (*Result, error) {
	id, err := s.ledger.SaveTransaction(ctx, tx)
	if err != nil {
		s.logger.Error("Failed to persist transaction",
			"type", tx.Type().String(),
			"amount", tx.Amount(),
			"error", err)
		return nil, err
	}
	persisted := tx.Persisted(id)

	event, err := events.NewLedgerEvent(persisted)
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		s.logger.Warn("Failed to publish ledger event", "transaction_id", id, "error", err)
	}

	return &Result{
		Transaction:   persisted,
		SourceBalance: source.Balance(),
	}, nil
}

func transactionID(t *domain.Transaction) int64 {
	id, _ := t.ID()
	return id
}
