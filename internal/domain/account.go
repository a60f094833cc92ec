package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/errors"
)

const MaxHolderNameLength = 50

// Account holds a balance and the transactions that touched it. The number is
// absent until a store saves the account.
//
// Accounts are not safe for concurrent use.
type Account struct {
	number       *int64
	holderName   string
	balance      decimal.Decimal
	transactions []*Transaction
}

func NewAccount(holderName string) (*Account, error) {
	name, err := validateHolderName(holderName)
	if err != nil {
		return nil, err
	}

	return &Account{
		holderName: name,
		balance:    decimal.Zero,
	}, nil
}

// RestoreAccount rebuilds a stored account.
func RestoreAccount(number int64, holderName string, balance decimal.Decimal, transactions []*Transaction) (*Account, error) {
	name, err := validateHolderName(holderName)
	if err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, errors.NewAppErrorf(errors.InternalError, "stored balance of account %d is negative", number)
	}

	a := &Account{
		number:     &number,
		holderName: name,
		balance:    balance,
	}
	a.transactions = append(a.transactions, transactions...)
	return a, nil
}

func validateHolderName(holderName string) (string, error) {
	name := strings.TrimSpace(holderName)
	if name == "" || utf8.RuneCountInString(name) > MaxHolderNameLength {
		return "", errors.ErrInvalidHolderName
	}
	return name, nil
}

func (a *Account) Number() (int64, bool) {
	if a.number == nil {
		return 0, false
	}
	return *a.number, true
}

func (a *Account) IsPersisted() bool {
	return a.number != nil
}

func (a *Account) HolderName() string {
	return a.holderName
}

func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// Transactions returns the account's transactions in the order they were
// appended.
func (a *Account) Transactions() []*Transaction {
	out := make([]*Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

// WithNumber returns a copy of a carrying the number a store assigned.
func (a *Account) WithNumber(number int64) (*Account, error) {
	if a.number != nil {
		return nil, errors.ErrAccountAlreadySaved
	}
	c := *a
	c.number = &number
	c.transactions = a.Transactions()
	return &c, nil
}

// AttachHistory fills the transaction list of a freshly restored account.
func (a *Account) AttachHistory(transactions []*Transaction) error {
	if len(a.transactions) > 0 {
		return errors.NewAppError(errors.InvalidInput, "account already has a transaction history")
	}
	for _, t := range transactions {
		if t == nil || !(t.source.sameAs(a) || t.IsDestination(a)) {
			return errors.NewAppError(errors.InvalidInput, "transaction does not involve this account")
		}
	}
	a.transactions = append(a.transactions, transactions...)
	return nil
}

func (a *Account) Withdraw(amount decimal.Decimal) (*Transaction, error) {
	if a.balance.LessThan(amount) {
		return nil, errors.ErrInsufficientFunds.WithDetails("balance: " + a.balance.String() + ", amount: " + amount.String())
	}

	t, err := NewTransaction(TransactionTypeWithdraw, amount, a)
	if err != nil {
		return nil, err
	}

	a.transactions = append(a.transactions, t)
	a.balance = a.balance.Sub(amount)
	return t, nil
}

func (a *Account) Deposit(amount decimal.Decimal) (*Transaction, error) {
	t, err := NewTransaction(TransactionTypeDeposit, amount, a)
	if err != nil {
		return nil, err
	}

	a.transactions = append(a.transactions, t)
	a.balance = a.balance.Add(amount)
	return t, nil
}

func (a *Account) Transfer(amount decimal.Decimal, destination *Account) (*Transaction, error) {
	result, err := Transfer(a, destination, amount)
	if err != nil {
		return nil, err
	}
	return result.Transaction, nil
}

func (a *Account) receiveTransfer(t *Transaction) {
	a.transactions = append(a.transactions, t)
	a.balance = a.balance.Add(t.amount)
}

// sameAs compares by identity, then by number when both are persisted.
func (a *Account) sameAs(other *Account) bool {
	if a == nil || other == nil {
		return false
	}
	if a == other {
		return true
	}
	if a.number == nil || other.number == nil {
		return false
	}
	return *a.number == *other.number
}
