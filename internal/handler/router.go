package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers the public routes and wraps the admin routes with auth
func NewRouter(h *Handler, auth mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/pocket-money", h.AssignPocketMoney).Methods(http.MethodPost)
	r.HandleFunc("/transactions", h.SpendPocketMoney).Methods(http.MethodPost)
	r.HandleFunc("/children/{childId}/transactions", h.TransactionHistory).Methods(http.MethodGet)
	r.HandleFunc("/children/{childId}/pocket-money", h.PocketMoneyHistory).Methods(http.MethodGet)
	r.HandleFunc("/children/{childId}/monthly-spent", h.MonthlySpent).Methods(http.MethodGet)
	r.HandleFunc("/children/{childId}/weekly-summaries", h.WeeklySummaries).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth)
	admin.HandleFunc("/weekly-summaries/run", h.RunWeeklySummaries).Methods(http.MethodPost)

	return r
}
