package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type AccountResponse struct {
	AccountNumber    int64  `json:"account_number"`
	HolderName       string `json:"holder_name"`
	Balance          string `json:"balance"`
	TransactionCount int    `json:"transaction_count"`
}

type TransactionResponse struct {
	TransactionID            int64     `json:"transaction_id"`
	Type                     string    `json:"type"`
	Amount                   string    `json:"amount"`
	SourceAccountNumber      int64     `json:"source_account_number"`
	DestinationAccountNumber *int64    `json:"destination_account_number,omitempty"`
	Timestamp                time.Time `json:"timestamp"`
	// Direction is set on transfers in account histories: "sent" or "received".
	Direction string `json:"direction,omitempty"`
}

func newAccountResponse(a *domain.Account) AccountResponse {
	number, _ := a.Number()
	return AccountResponse{
		AccountNumber:    number,
		HolderName:       a.HolderName(),
		Balance:          a.Balance().String(),
		TransactionCount: len(a.Transactions()),
	}
}

func newTransactionResponse(t *domain.Transaction) TransactionResponse {
	id, _ := t.ID()
	source, _ := t.Source().Number()
	resp := TransactionResponse{
		TransactionID:       id,
		Type:                t.Type().String(),
		Amount:              t.Amount().String(),
		SourceAccountNumber: source,
		Timestamp:           t.Timestamp(),
	}
	if dest := t.Destination(); dest != nil {
		if n, ok := dest.Number(); ok {
			resp.DestinationAccountNumber = &n
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}
	// Server-side failures carry driver messages in Details; they stay in the logs.
	if statusCode >= http.StatusInternalServerError {
		slog.Error("Request failed", "code", appErr.Code, "message", appErr.Message, "details", appErr.Details)
		errResponse.Details = ""
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// writeServiceError unwraps an AppError from err; anything else is reported
// as an internal error.
func writeServiceError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		writeError(w, appErr)
		return
	}
	writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred").WithDetails(err.Error()))
}

func pathInt64(r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func parseAmount(raw string) (decimal.Decimal, *errors.AppError) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error())
	}
	return amount, nil
}
