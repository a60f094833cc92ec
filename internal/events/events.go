package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// LedgerEvent announces a committed transaction.
type LedgerEvent struct {
	EventID            uuid.UUID       `json:"event_id"`
	TransactionID      int64           `json:"transaction_id"`
	Type               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	SourceAccount      int64           `json:"source_account"`
	DestinationAccount *int64          `json:"destination_account,omitempty"`
	OccurredAt         time.Time       `json:"occurred_at"`
}

// NewLedgerEvent describes a persisted transaction. Transactions without an
// id have not been committed and are rejected.
func NewLedgerEvent(t *domain.Transaction) (LedgerEvent, error) {
	id, ok := t.ID()
	if !ok {
		return LedgerEvent{}, errors.NewAppError(errors.InvalidInput, "only persisted transactions produce ledger events")
	}
	source, ok := t.Source().Number()
	if !ok {
		return LedgerEvent{}, errors.ErrAccountNotSaved.WithDetails("source account")
	}

	event := LedgerEvent{
		EventID:       uuid.New(),
		TransactionID: id,
		Type:          t.Type().String(),
		Amount:        t.Amount(),
		SourceAccount: source,
		OccurredAt:    t.Timestamp(),
	}
	if dest := t.Destination(); dest != nil {
		if n, ok := dest.Number(); ok {
			event.DestinationAccount = &n
		}
	}
	return event, nil
}

type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
