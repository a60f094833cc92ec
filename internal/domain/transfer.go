package domain

import (
	"github.com/shopspring/decimal"

	"bank-ledger/internal/errors"
)

type TransferResult struct {
	Transaction        *Transaction
	SourceBalance      decimal.Decimal
	DestinationBalance decimal.Decimal
}

// Transfer moves amount from source to destination. Every check runs before
// either account changes: the destination is credited first, then the source
// is debited, and both lists receive the same transaction.
func Transfer(source, destination *Account, amount decimal.Decimal) (*TransferResult, error) {
	if source == nil {
		return nil, errors.NewAppError(errors.InvalidInput, "transfer requires a source account")
	}

	t, err := NewTransaction(TransactionTypeTransfer, amount, source, WithDestination(destination))
	if err != nil {
		return nil, err
	}
	if source.sameAs(destination) {
		return nil, errors.ErrSameAccountTransfer
	}
	if source.balance.LessThan(amount) {
		return nil, errors.ErrInsufficientFunds.WithDetails("balance: " + source.balance.String() + ", amount: " + amount.String())
	}

	destination.receiveTransfer(t)
	source.balance = source.balance.Sub(amount)
	source.transactions = append(source.transactions, t)

	return &TransferResult{
		Transaction:        t,
		SourceBalance:      source.balance,
		DestinationBalance: destination.balance,
	}, nil
}
