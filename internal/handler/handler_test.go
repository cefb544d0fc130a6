package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/allowance-service/internal/config"
	"github.com/Dan9191/allowance-service/internal/handler"
	"github.com/Dan9191/allowance-service/internal/middleware"
	"github.com/Dan9191/allowance-service/internal/models"
	"github.com/Dan9191/allowance-service/internal/repository"
	"github.com/Dan9191/allowance-service/internal/service"
)

const secret = "test-secret"

func newTestRouter(t *testing.T) (http.Handler, *repository.Memory) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := repository.NewMemory()
	svc := service.NewService(store, nil, logger)
	agg := service.NewAggregator(store, nil, service.MidpointPicker{}, 2, logger)
	h := handler.NewHandler(svc, agg, logger)
	return handler.NewRouter(h, middleware.AuthMiddleware(&config.Config{JWTSecret: secret})), store
}

func do(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAssignPocketMoney(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/pocket-money", `{"childId":"child-1","parentId":"parent-1","amount":100}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pocket money assigned successfully")

	rec = do(t, router, http.MethodGet, "/children/child-1/pocket-money", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var grants []models.PocketMoney
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grants))
	require.Len(t, grants, 1)
	assert.Equal(t, 100.0, grants[0].Amount)
	assert.Equal(t, "parent-1", grants[0].GrantedBy)
}

func TestAssignPocketMoney_RejectsNonPositiveAmount(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/pocket-money", `{"childId":"child-1","amount":0}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "amount must be greater than 0")
}

func TestSpendPocketMoney_DefaultsUnknownCategory(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/transactions", `{"childId":"child-1","amount":15,"category":"toys"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/children/child-1/transactions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var transactions []models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transactions))
	require.Len(t, transactions, 1)
	assert.Equal(t, models.TransactionExpense, transactions[0].Type)
	assert.Equal(t, models.CategoryOther, transactions[0].Category)
}

func TestSpendPocketMoney_RejectsUnknownType(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/transactions", `{"childId":"child-1","amount":15,"type":"refund"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_EmptyIsArray(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/children/nobody/weekly-summaries", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRunWeeklySummaries_RequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/admin/weekly-summaries/run", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunWeeklySummaries(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/pocket-money", `{"childId":"child-1","parentId":"parent-1","amount":500}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/transactions", `{"childId":"child-1","amount":600,"category":"luxury"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	asOf := time.Now().Add(time.Minute).UTC().Format(time.RFC3339)
	rec = do(t, router, http.MethodPost, "/admin/weekly-summaries/run", `{"asOf":"`+asOf+`"}`, adminToken(t))
	require.Equal(t, http.StatusCreated, rec.Code)

	var report models.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, models.TagOverspender, report.Summaries[0].Tag)
	assert.Equal(t, 45, report.Summaries[0].CreditScore)

	rec = do(t, router, http.MethodGet, "/children/child-1/weekly-summaries", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []models.WeeklySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, models.CategoryLuxury, summaries[0].TopCategory)
}

func TestMonthlySpent(t *testing.T) {
	router, _ := newTestRouter(t)

	do(t, router, http.MethodPost, "/transactions", `{"childId":"child-1","amount":20,"category":"food"}`, "")
	do(t, router, http.MethodPost, "/transactions", `{"childId":"child-1","amount":5,"type":"income"}`, "")

	rec := do(t, router, http.MethodGet, "/children/child-1/monthly-spent", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var spent models.MonthlySpent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spent))
	assert.Equal(t, 20.0, spent.TotalSpent)
}
