package handler

import (
	"encoding/json"
	"net/http"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	HolderName string `json:"holder_name"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	account, err := h.accountService.OpenAccount(r.Context(), req.HolderName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "account_number")
	if !ok {
		writeError(w, errors.ErrInvalidAccountNumber)
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), number)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

type HistoryResponse struct {
	Account      AccountResponse       `json:"account"`
	Transactions []TransactionResponse `json:"transactions"`
}

// ListTransactions frames each transfer from the account's point of view.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "account_number")
	if !ok {
		writeError(w, errors.ErrInvalidAccountNumber)
		return
	}

	account, history, err := h.accountService.History(r.Context(), number)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := HistoryResponse{
		Account:      newAccountResponse(account),
		Transactions: make([]TransactionResponse, 0, len(history)),
	}
	for _, t := range history {
		tr := newTransactionResponse(t)
		if t.Type() == domain.TransactionTypeTransfer {
			if t.IsDestination(account) {
				tr.Direction = "received"
			} else {
				tr.Direction = "sent"
			}
		}
		resp.Transactions = append(resp.Transactions, tr)
	}

	writeJSON(w, http.StatusOK, resp)
}
