package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/errors"
)

type BalanceDelta struct {
	AccountNumber int64
	Amount        decimal.Decimal
}

// ApplyPlan is what a store must write for one transaction: the row itself
// and the balance deltas, in order.
type ApplyPlan struct {
	Source      int64
	Destination *int64
	Deltas      []BalanceDelta
}

// PlanApply checks that t can be persisted and lists its deltas. A transfer
// credits the destination before debiting the source.
func PlanApply(t *Transaction) (*ApplyPlan, error) {
	if t == nil {
		return nil, errors.NewAppError(errors.InvalidInput, "transaction is required")
	}
	if t.IsPersisted() {
		return nil, errors.ErrTransactionAlreadySaved
	}

	source, ok := t.source.Number()
	if !ok {
		return nil, errors.ErrAccountNotSaved.WithDetails("source account")
	}
	plan := &ApplyPlan{Source: source}

	switch t.txType {
	case TransactionTypeDeposit:
		plan.Deltas = []BalanceDelta{{AccountNumber: source, Amount: t.amount}}
	case TransactionTypeWithdraw:
		plan.Deltas = []BalanceDelta{{AccountNumber: source, Amount: t.amount.Neg()}}
	case TransactionTypeTransfer:
		destination, ok := t.destination.Number()
		if !ok {
			return nil, errors.ErrAccountNotSaved.WithDetails("destination account")
		}
		plan.Destination = &destination
		plan.Deltas = []BalanceDelta{
			{AccountNumber: destination, Amount: t.amount},
			{AccountNumber: source, Amount: t.amount.Neg()},
		}
	default:
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unsupported transaction type %s", t.txType)
	}
	return plan, nil
}

// StoredTransaction is a transaction as a store keeps it, with accounts
// referenced by number.
type StoredTransaction struct {
	ID          int64
	Timestamp   time.Time
	Type        string
	Source      int64
	Destination *int64
	Amount      decimal.Decimal
}

// AccountCache loads each account at most once while a store rebuilds a
// batch of transactions.
type AccountCache struct {
	load     func(ctx context.Context, number int64) (*Account, error)
	byNumber map[int64]*Account
}

// NewAccountCache seeds the cache with already loaded accounts so rebuilt
// transactions point at them.
func NewAccountCache(load func(ctx context.Context, number int64) (*Account, error), seed ...*Account) *AccountCache {
	c := &AccountCache{
		load:     load,
		byNumber: make(map[int64]*Account),
	}
	for _, a := range seed {
		if number, ok := a.Number(); ok {
			c.byNumber[number] = a
		}
	}
	return c
}

func (c *AccountCache) Get(ctx context.Context, number int64) (*Account, error) {
	if a, ok := c.byNumber[number]; ok {
		return a, nil
	}
	a, err := c.load(ctx, number)
	if err != nil {
		return nil, err
	}
	c.byNumber[number] = a
	return a, nil
}

// Rebuild turns a stored record back into a Transaction. Source and
// destination are looked up by their own numbers.
func (c *AccountCache) Rebuild(ctx context.Context, st StoredTransaction) (*Transaction, error) {
	source, err := c.Get(ctx, st.Source)
	if err != nil {
		return nil, err
	}

	opts := []TransactionOption{WithID(st.ID), WithTimestamp(st.Timestamp)}
	if st.Destination != nil {
		destination, err := c.Get(ctx, *st.Destination)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDestination(destination))
	}

	t, err := NewTransaction(ParseTransactionType(st.Type), st.Amount, source, opts...)
	if err != nil {
		return nil, errors.NewAppErrorf(errors.InternalError, "stored transaction %d is invalid", st.ID).Wrap(err)
	}
	return t, nil
}
