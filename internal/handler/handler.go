package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/allowance-service/internal/models"
	"github.com/Dan9191/allowance-service/internal/service"
)

// AggregationRunner is the weekly aggregation entry point
type AggregationRunner interface {
	RunWeeklyAggregation(ctx context.Context, asOf time.Time) (*models.RunReport, error)
}

type Handler struct {
	svc    *service.Service
	runner AggregationRunner
	log    *logrus.Logger
}

func NewHandler(svc *service.Service, runner AggregationRunner, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, runner: runner, log: log}
}

type assignRequest struct {
	ChildID  string  `json:"childId"`
	ParentID string  `json:"parentId"`
	Amount   float64 `json:"amount"`
}

type runRequest struct {
	AsOf *time.Time `json:"asOf"`
}

// Health reports that the process is serving
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AssignPocketMoney handles allowance grants
func (h *Handler) AssignPocketMoney(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pm, err := h.svc.AssignPocketMoney(r.Context(), req.ChildID, req.ParentID, req.Amount)
	if err != nil {
		h.fail(w, "Assign pocket money", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Pocket money assigned successfully",
		"pocketMoney": pm,
	})
}

// SpendPocketMoney handles transactions logged by a child
func (h *Handler) SpendPocketMoney(w http.ResponseWriter, r *http.Request) {
	var req service.SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.SpendPocketMoney(r.Context(), req)
	if err != nil {
		h.fail(w, "Spend pocket money", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Transaction successful",
		"transaction": tx,
	})
}

// TransactionHistory lists a child's transactions
func (h *Handler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.svc.TransactionHistory(r.Context(), mux.Vars(r)["childId"])
	if err != nil {
		h.fail(w, "Get transaction history", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(transactions))
}

// PocketMoneyHistory lists a child's allowance grants
func (h *Handler) PocketMoneyHistory(w http.ResponseWriter, r *http.Request) {
	grants, err := h.svc.PocketMoneyHistory(r.Context(), mux.Vars(r)["childId"])
	if err != nil {
		h.fail(w, "Get pocket money history", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(grants))
}

// MonthlySpent reports a child's spending in the current month
func (h *Handler) MonthlySpent(w http.ResponseWriter, r *http.Request) {
	spent, err := h.svc.MonthlySpent(r.Context(), mux.Vars(r)["childId"])
	if err != nil {
		h.fail(w, "Get monthly spent", err)
		return
	}
	writeJSON(w, http.StatusOK, spent)
}

// WeeklySummaries lists a child's weekly summaries
func (h *Handler) WeeklySummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.WeeklySummaries(r.Context(), mux.Vars(r)["childId"])
	if err != nil {
		h.fail(w, "Get weekly summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(summaries))
}

// RunWeeklySummaries triggers the weekly aggregation on demand. The body may
// carry an RFC 3339 "asOf"; the current time is used otherwise.
func (h *Handler) RunWeeklySummaries(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if r.ContentLength != 0 {
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.AsOf != nil {
			asOf = *req.AsOf
		}
	}

	report, err := h.runner.RunWeeklyAggregation(r.Context(), asOf)
	if err != nil {
		h.fail(w, "Run weekly summaries", err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// fail maps service errors to a status code
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidType),
		errors.Is(err, service.ErrMissingChild):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).Errorf("%s error", op)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
