package handler

import "github.com/gorilla/mux"

func RegisterRoutes(router *mux.Router, accounts *AccountHandler, transactions *TransactionHandler) {
	router.HandleFunc("/accounts", accounts.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts/{account_number}", accounts.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_number}/transactions", accounts.ListTransactions).Methods("GET")
	router.HandleFunc("/accounts/{account_number}/deposits", transactions.Deposit).Methods("POST")
	router.HandleFunc("/accounts/{account_number}/withdrawals", transactions.Withdraw).Methods("POST")

	router.HandleFunc("/transfers", transactions.Transfer).Methods("POST")
	router.HandleFunc("/transactions/{transaction_id}", transactions.GetTransaction).Methods("GET")
}
