package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput            ErrorCode = "invalid_input"
	InvalidAmount           ErrorCode = "invalid_amount"
	InvalidTransfer         ErrorCode = "invalid_transfer"
	SameAccountTransfer     ErrorCode = "same_account_transfer"
	InvalidHolderName       ErrorCode = "invalid_holder_name"
	InvalidAccountNumber    ErrorCode = "invalid_account_number"
	InvalidTransactionID    ErrorCode = "invalid_transaction_id"
	AccountNotSaved         ErrorCode = "account_not_saved"
	InsufficientFunds       ErrorCode = "insufficient_funds"
	AccountNotFound         ErrorCode = "account_not_found"
	TransactionNotFound     ErrorCode = "transaction_not_found"
	AccountAlreadySaved     ErrorCode = "account_already_saved"
	TransactionAlreadySaved ErrorCode = "transaction_already_saved"
	PersistenceFailed       ErrorCode = "persistence_error"
	CannotBeginTransaction  ErrorCode = "cannot_begin_transaction"
	InternalError           ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	cause error
}

func (e AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e carrying details. Predefined errors are
// shared, so they are never modified in place.
func (e *AppError) WithDetails(details string) *AppError {
	c := *e
	c.Details = details
	return &c
}

// Wrap returns a copy of e with cause attached. The cause's message becomes
// the details unless details were already set.
func (e *AppError) Wrap(cause error) *AppError {
	c := *e
	c.cause = cause
	if c.Details == "" && cause != nil {
		c.Details = cause.Error()
	}
	return &c
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is reports whether target is an AppError with the same code. Every
// predefined error carries its own code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount, InvalidTransfer, SameAccountTransfer, InvalidHolderName,
		InvalidAccountNumber, InvalidTransactionID, AccountNotSaved:
		return http.StatusBadRequest
	case InsufficientFunds:
		return http.StatusUnprocessableEntity
	case AccountNotFound, TransactionNotFound:
		return http.StatusNotFound
	case AccountAlreadySaved, TransactionAlreadySaved:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Persistence wraps cause as a persistence failure. A cause that already is a
// persistence failure is returned unchanged.
func Persistence(message string, cause error) *AppError {
	var appErr *AppError
	if As(cause, &appErr) && appErr.Code == PersistenceFailed {
		return appErr
	}
	return NewAppError(PersistenceFailed, message).Wrap(cause)
}

// Is and As mirror the standard library so callers importing this package
// under the name errors keep both.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Predefined errors for common cases
var (
	ErrInvalidAmount           = NewAppError(InvalidAmount, "amount must be greater than zero")
	ErrInvalidTransfer         = NewAppError(InvalidTransfer, "transfer requires a destination account")
	ErrSameAccountTransfer     = NewAppError(SameAccountTransfer, "cannot transfer to the same account")
	ErrInvalidHolderName       = NewAppError(InvalidHolderName, "holder name must be between 1 and 50 characters")
	ErrInsufficientFunds       = NewAppError(InsufficientFunds, "insufficient funds")
	ErrAccountNotFound         = NewAppError(AccountNotFound, "account not found")
	ErrTransactionNotFound     = NewAppError(TransactionNotFound, "transaction not found")
	ErrAccountAlreadySaved     = NewAppError(AccountAlreadySaved, "account has already been saved")
	ErrTransactionAlreadySaved = NewAppError(TransactionAlreadySaved, "transaction has already been saved")
	ErrAccountNotSaved         = NewAppError(AccountNotSaved, "account has not been saved")
	ErrInvalidAccountNumber    = NewAppError(InvalidAccountNumber, "invalid account number")
	ErrInvalidTransactionID    = NewAppError(InvalidTransactionID, "invalid transaction id")
	ErrPersistence             = NewAppError(PersistenceFailed, "ledger store could not commit the operation")
	ErrCannotBeginTransaction  = NewAppError(CannotBeginTransaction, "cannot begin a transaction on this executor")
)
