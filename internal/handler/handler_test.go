package handler

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/repository/memory"
	"bank-ledger/internal/service"
)

func newTestRouter() *mux.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore(logger)

	router := mux.NewRouter()
	RegisterRoutes(router,
		NewAccountHandler(service.NewAccountService(store, logger)),
		NewTransactionHandler(service.NewTransactionService(store, nil, logger)),
	)
	return router
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *Error          `json:"error"`
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func createAccount(t *testing.T, router http.Handler, name string) int64 {
	t.Helper()
	code, env := do(t, router, "POST", "/accounts", map[string]string{"holder_name": name})
	require.Equal(t, http.StatusCreated, code)

	var account AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &account))
	return account.AccountNumber
}

func accountPath(number int64, suffix string) string {
	return "/accounts/" + strconv.FormatInt(number, 10) + suffix
}

func TestCreateAccount(t *testing.T) {
	router := newTestRouter()

	code, env := do(t, router, "POST", "/accounts", map[string]string{"holder_name": "Ada Lovelace"})
	require.Equal(t, http.StatusCreated, code)

	var account AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Positive(t, account.AccountNumber)
	assert.Equal(t, "Ada Lovelace", account.HolderName)
	assert.Equal(t, "0", account.Balance)
	assert.Zero(t, account.TransactionCount)
}

func TestCreateAccount_Invalid(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"malformed json", "{", "invalid_input"},
		{"blank holder", map[string]string{"holder_name": "  "}, "invalid_holder_name"},
		{"holder too long", map[string]string{"holder_name": string(bytes.Repeat([]byte("x"), 51))}, "invalid_holder_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, router, "POST", "/accounts", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestGetAccount(t *testing.T) {
	router := newTestRouter()
	number := createAccount(t, router, "Ada")

	code, env := do(t, router, "GET", accountPath(number, ""), nil)
	require.Equal(t, http.StatusOK, code)
	var account AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Equal(t, number, account.AccountNumber)

	code, env = do(t, router, "GET", "/accounts/999", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "account_not_found", env.Error.Code)

	code, env = do(t, router, "GET", "/accounts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_account_number", env.Error.Code)
}

func TestDepositAndWithdraw(t *testing.T) {
	router := newTestRouter()
	number := createAccount(t, router, "Ada")

	code, env := do(t, router, "POST", accountPath(number, "/deposits"), map[string]string{"amount": "100.00"})
	require.Equal(t, http.StatusCreated, code)
	var op OperationResponse
	require.NoError(t, json.Unmarshal(env.Data, &op))
	assert.Equal(t, "100", op.Balance)
	assert.Equal(t, "Deposit", op.Transaction.Type)
	assert.Equal(t, number, op.Transaction.SourceAccountNumber)
	assert.Nil(t, op.Transaction.DestinationAccountNumber)

	code, env = do(t, router, "POST", accountPath(number, "/withdrawals"), map[string]string{"amount": "30"})
	require.Equal(t, http.StatusCreated, code)
	require.NoError(t, json.Unmarshal(env.Data, &op))
	assert.Equal(t, "70", op.Balance)
	assert.Equal(t, "Withdraw", op.Transaction.Type)

	code, env = do(t, router, "POST", accountPath(number, "/withdrawals"), map[string]string{"amount": "70.01"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "insufficient_funds", env.Error.Code)
}

func TestDeposit_InvalidAmount(t *testing.T) {
	router := newTestRouter()
	number := createAccount(t, router, "Ada")

	for _, amount := range []string{"", "ten", "-5", "0", "0.00001"} {
		t.Run(amount, func(t *testing.T) {
			code, env := do(t, router, "POST", accountPath(number, "/deposits"), map[string]string{"amount": amount})
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "invalid_amount", env.Error.Code)
		})
	}
}

func TestTransfer(t *testing.T) {
	router := newTestRouter()
	a := createAccount(t, router, "Ada")
	b := createAccount(t, router, "Grace")
	do(t, router, "POST", accountPath(a, "/deposits"), map[string]string{"amount": "200"})

	code, env := do(t, router, "POST", "/transfers", map[string]interface{}{
		"source_account_number":      a,
		"destination_account_number": b,
		"amount":                     "50",
	})
	require.Equal(t, http.StatusCreated, code)

	var result TransferResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "150", result.SourceBalance)
	assert.Equal(t, "50", result.DestinationBalance)
	assert.Equal(t, "Transfer", result.Transaction.Type)
	require.NotNil(t, result.Transaction.DestinationAccountNumber)
	assert.Equal(t, b, *result.Transaction.DestinationAccountNumber)

	code, env = do(t, router, "GET", "/transactions/"+strconv.FormatInt(result.Transaction.TransactionID, 10), nil)
	require.Equal(t, http.StatusOK, code)
	var tx TransactionResponse
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	assert.Equal(t, result.Transaction.TransactionID, tx.TransactionID)
	assert.Equal(t, "50", tx.Amount)
}

func TestTransfer_Rejections(t *testing.T) {
	router := newTestRouter()
	a := createAccount(t, router, "Ada")
	b := createAccount(t, router, "Grace")
	do(t, router, "POST", accountPath(a, "/deposits"), map[string]string{"amount": "10"})

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"same account", map[string]interface{}{"source_account_number": a, "destination_account_number": a, "amount": "1"}, http.StatusBadRequest, "same_account_transfer"},
		{"insufficient funds", map[string]interface{}{"source_account_number": a, "destination_account_number": b, "amount": "11"}, http.StatusUnprocessableEntity, "insufficient_funds"},
		{"unknown destination", map[string]interface{}{"source_account_number": a, "destination_account_number": 999, "amount": "1"}, http.StatusNotFound, "account_not_found"},
		{"missing source", map[string]interface{}{"destination_account_number": b, "amount": "1"}, http.StatusBadRequest, "invalid_account_number"},
		{"bad amount", map[string]interface{}{"source_account_number": a, "destination_account_number": b, "amount": "1e"}, http.StatusBadRequest, "invalid_amount"},
		{"too many decimals", map[string]interface{}{"source_account_number": a, "destination_account_number": b, "amount": "0.00001"}, http.StatusBadRequest, "invalid_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, router, "POST", "/transfers", tt.body)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}

	_, env := do(t, router, "GET", accountPath(a, ""), nil)
	var account AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Equal(t, "10", account.Balance)
}

func TestListTransactions_Direction(t *testing.T) {
	router := newTestRouter()
	a := createAccount(t, router, "Ada")
	b := createAccount(t, router, "Grace")
	do(t, router, "POST", accountPath(a, "/deposits"), map[string]string{"amount": "20"})
	do(t, router, "POST", "/transfers", map[string]interface{}{
		"source_account_number":      a,
		"destination_account_number": b,
		"amount":                     "5",
	})

	code, env := do(t, router, "GET", accountPath(b, "/transactions"), nil)
	require.Equal(t, http.StatusOK, code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Equal(t, "5", history.Account.Balance)
	require.Len(t, history.Transactions, 1)
	assert.Equal(t, "received", history.Transactions[0].Direction)

	code, env = do(t, router, "GET", accountPath(a, "/transactions"), nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history.Transactions, 2)
	assert.Equal(t, "Deposit", history.Transactions[0].Type)
	assert.Empty(t, history.Transactions[0].Direction)
	assert.Equal(t, "sent", history.Transactions[1].Direction)
	assert.Equal(t, 2, history.Account.TransactionCount)
}

func TestGetTransaction_Errors(t *testing.T) {
	router := newTestRouter()

	code, env := do(t, router, "GET", "/transactions/42", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "transaction_not_found", env.Error.Code)

	code, env = do(t, router, "GET", "/transactions/-1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_transaction_id", env.Error.Code)
}

// brokenStore accepts accounts but fails every transaction write the way a
// SQL driver would.
type brokenStore struct {
	*memory.Store
}

func (s *brokenStore) SaveTransaction(_ context.Context, _ *domain.Transaction) (int64, error) {
	return 0, errors.Persistence("failed to save transaction", stderrors.New("pq: relation \"transactions\" does not exist"))
}

func TestServerErrors_OmitDetails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &brokenStore{Store: memory.NewStore(logger)}

	router := mux.NewRouter()
	RegisterRoutes(router,
		NewAccountHandler(service.NewAccountService(store, logger)),
		NewTransactionHandler(service.NewTransactionService(store, nil, logger)),
	)
	number := createAccount(t, router, "Ada")

	code, env := do(t, router, "POST", accountPath(number, "/deposits"), map[string]string{"amount": "10"})
	assert.Equal(t, http.StatusInternalServerError, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "persistence_error", env.Error.Code)
	assert.Empty(t, env.Error.Details)

	code, env = do(t, router, "POST", accountPath(number, "/deposits"), map[string]string{"amount": "0.5"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotContains(t, env.Error.Message, "pq:")
}

func TestClientErrors_KeepDetails(t *testing.T) {
	router := newTestRouter()
	number := createAccount(t, router, "Ada")

	code, env := do(t, router, "POST", accountPath(number, "/withdrawals"), map[string]string{"amount": "5"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "insufficient_funds", env.Error.Code)
	assert.NotEmpty(t, env.Error.Details)
}
