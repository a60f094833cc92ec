package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/errors"
	"bank-ledger/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
}

func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type TransferRequest struct {
	SourceAccountNumber      json.Number `json:"source_account_number"`
	DestinationAccountNumber json.Number `json:"destination_account_number"`
	Amount                   string      `json:"amount"`
}

type OperationResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     string              `json:"balance"`
}

type TransferResponse struct {
	Transaction        TransactionResponse `json:"transaction"`
	SourceBalance      string              `json:"source_balance"`
	DestinationBalance string              `json:"destination_balance"`
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.applyToAccount(w, r, h.transactionService.Deposit)
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.applyToAccount(w, r, h.transactionService.Withdraw)
}

type accountOperation func(ctx context.Context, number int64, amount decimal.Decimal) (*service.Result, error)

func (h *TransactionHandler) applyToAccount(w http.ResponseWriter, r *http.Request, op accountOperation) {
	number, ok := pathInt64(r, "account_number")
	if !ok {
		writeError(w, errors.ErrInvalidAccountNumber)
		return
	}

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	amount, appErr := parseAmount(req.Amount)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	result, err := op(r.Context(), number, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, OperationResponse{
		Transaction: newTransactionResponse(result.Transaction),
		Balance:     result.SourceBalance.String(),
	})
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	source, err := req.SourceAccountNumber.Int64()
	if err != nil || source <= 0 {
		writeError(w, errors.ErrInvalidAccountNumber.WithDetails("source_account_number"))
		return
	}
	destination, err := req.DestinationAccountNumber.Int64()
	if err != nil || destination <= 0 {
		writeError(w, errors.ErrInvalidAccountNumber.WithDetails("destination_account_number"))
		return
	}

	amount, appErr := parseAmount(req.Amount)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	result, err := h.transactionService.Transfer(r.Context(), &service.TransferRequest{
		SourceAccountNumber:      source,
		DestinationAccountNumber: destination,
		Amount:                   amount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferResponse{
		Transaction:        newTransactionResponse(result.Transaction),
		SourceBalance:      result.SourceBalance.String(),
		DestinationBalance: result.DestinationBalance.String(),
	})
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "transaction_id")
	if !ok {
		writeError(w, errors.ErrInvalidTransactionID)
		return
	}

	t, err := h.transactionService.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTransactionResponse(t))
}
