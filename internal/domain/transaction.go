package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/errors"
)

type TransactionType int

const (
	TransactionTypeOther TransactionType = iota
	TransactionTypeDeposit
	TransactionTypeWithdraw
	TransactionTypeTransfer
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeDeposit:
		return "Deposit"
	case TransactionTypeWithdraw:
		return "Withdraw"
	case TransactionTypeTransfer:
		return "Transfer"
	default:
		return "Other"
	}
}

// ParseTransactionType is case-insensitive. Unknown tags map to
// TransactionTypeOther.
func ParseTransactionType(s string) TransactionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return TransactionTypeDeposit
	case "withdraw":
		return TransactionTypeWithdraw
	case "transfer":
		return TransactionTypeTransfer
	default:
		return TransactionTypeOther
	}
}

func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(text []byte) error {
	*t = ParseTransactionType(string(text))
	return nil
}

// MaxAmountScale is the number of decimal places every store keeps for
// amounts and balances.
const MaxAmountScale = 4

// Transaction is an immutable record of one ledger event. It can only be
// built through NewTransaction.
type Transaction struct {
	id          *int64
	txType      TransactionType
	timestamp   time.Time
	amount      decimal.Decimal
	source      *Account
	destination *Account
}

type TransactionOption func(*Transaction)

func WithDestination(account *Account) TransactionOption {
	return func(t *Transaction) {
		t.destination = account
	}
}

// WithID and WithTimestamp are meant for rebuilding stored records.
func WithID(id int64) TransactionOption {
	return func(t *Transaction) {
		t.id = &id
	}
}

func WithTimestamp(ts time.Time) TransactionOption {
	return func(t *Transaction) {
		t.timestamp = ts.UTC()
	}
}

func NewTransaction(txType TransactionType, amount decimal.Decimal, source *Account, opts ...TransactionOption) (*Transaction, error) {
	t := &Transaction{
		txType: txType,
		amount: amount,
		source: source,
	}
	for _, opt := range opts {
		opt(t)
	}

	if txType == TransactionTypeTransfer && t.destination == nil {
		return nil, errors.ErrInvalidTransfer
	}
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount.WithDetails("amount: " + amount.String())
	}
	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return nil, errors.ErrInvalidAmount.WithDetails(fmt.Sprintf("amount %s has more than %d decimal places", amount, MaxAmountScale))
	}
	if source == nil {
		return nil, errors.NewAppError(errors.InvalidInput, "transaction requires a source account")
	}

	if t.timestamp.IsZero() {
		t.timestamp = time.Now().UTC()
	}
	return t, nil
}

func (t *Transaction) ID() (int64, bool) {
	if t.id == nil {
		return 0, false
	}
	return *t.id, true
}

func (t *Transaction) IsPersisted() bool {
	return t.id != nil
}

func (t *Transaction) Type() TransactionType {
	return t.txType
}

func (t *Transaction) Timestamp() time.Time {
	return t.timestamp
}

func (t *Transaction) Amount() decimal.Decimal {
	return t.amount
}

func (t *Transaction) Source() *Account {
	return t.source
}

// Destination is nil for anything but a transfer.
func (t *Transaction) Destination() *Account {
	return t.destination
}

func (t *Transaction) IsDestination(account *Account) bool {
	if account == nil || t.destination == nil {
		return false
	}
	return t.destination.sameAs(account)
}

// Persisted returns a copy of t carrying the id the store assigned.
func (t *Transaction) Persisted(id int64) *Transaction {
	c := *t
	c.id = &id
	return &c
}
