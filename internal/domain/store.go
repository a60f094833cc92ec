package domain

import "context"

// AccountStore persists accounts. GetAccount reports a missing account with
// errors.ErrAccountNotFound.
type AccountStore interface {
	SaveAccount(ctx context.Context, account *Account) (int64, error)
	GetAccount(ctx context.Context, number int64) (*Account, error)
}

// TransactionStore persists transactions. SaveTransaction is the atomic apply:
// it inserts the record and applies its balance deltas in a single storage
// transaction, or does neither.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, t *Transaction) (int64, error)
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	ListTransactions(ctx context.Context, account *Account) ([]*Transaction, error)
}

type Ledger interface {
	AccountStore
	TransactionStore
}
