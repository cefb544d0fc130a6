package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/allowance-service/internal/models"
	"github.com/Dan9191/allowance-service/internal/repository"
	"github.com/Dan9191/allowance-service/internal/service"
)

type balanceCall struct {
	childID string
	delta   float64
}

type fakeBalance struct {
	calls []balanceCall
	err   error
}

func (f *fakeBalance) AdjustBalance(_ context.Context, childID string, delta float64) error {
	f.calls = append(f.calls, balanceCall{childID: childID, delta: delta})
	return f.err
}

func TestAssignPocketMoney_SyncsBalance(t *testing.T) {
	store := repository.NewMemory()
	balance := &fakeBalance{}
	svc := service.NewService(store, balance, quietLogger())

	pm, err := svc.AssignPocketMoney(context.Background(), "child-1", "parent-1", 250)
	require.NoError(t, err)
	assert.NotEmpty(t, pm.ID)
	assert.Equal(t, []balanceCall{{childID: "child-1", delta: 250}}, balance.calls)
}

func TestAssignPocketMoney_Validation(t *testing.T) {
	svc := service.NewService(repository.NewMemory(), nil, quietLogger())

	_, err := svc.AssignPocketMoney(context.Background(), "child-1", "parent-1", -5)
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	_, err = svc.AssignPocketMoney(context.Background(), " ", "parent-1", 5)
	assert.ErrorIs(t, err, service.ErrMissingChild)
}

func TestSpendPocketMoney_DebitsExpensesAndCreditsIncome(t *testing.T) {
	store := repository.NewMemory()
	balance := &fakeBalance{}
	svc := service.NewService(store, balance, quietLogger())
	ctx := context.Background()

	tx, err := svc.SpendPocketMoney(ctx, service.SpendRequest{ChildID: "child-1", Amount: 40, Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionExpense, tx.Type)
	assert.Equal(t, models.CategoryFood, tx.Category)

	_, err = svc.SpendPocketMoney(ctx, service.SpendRequest{ChildID: "child-1", Amount: 10, Type: "income"})
	require.NoError(t, err)

	assert.Equal(t, []balanceCall{{"child-1", -40}, {"child-1", 10}}, balance.calls)

	history, err := svc.TransactionHistory(ctx, "child-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSpendPocketMoney_BalanceFailureKeepsRecord(t *testing.T) {
	store := repository.NewMemory()
	svc := service.NewService(store, &fakeBalance{err: errors.New("auth service down")}, quietLogger())

	_, err := svc.SpendPocketMoney(context.Background(), service.SpendRequest{ChildID: "child-1", Amount: 5})
	require.NoError(t, err)

	history, err := svc.TransactionHistory(context.Background(), "child-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSpendPocketMoney_Validation(t *testing.T) {
	svc := service.NewService(repository.NewMemory(), nil, quietLogger())

	_, err := svc.SpendPocketMoney(context.Background(), service.SpendRequest{ChildID: "child-1", Amount: 0})
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	_, err = svc.SpendPocketMoney(context.Background(), service.SpendRequest{ChildID: "child-1", Amount: 3, Type: "transfer"})
	assert.ErrorIs(t, err, service.ErrInvalidType)
}

func TestMonthlySpent_OnlyCurrentMonthExpenses(t *testing.T) {
	store := repository.NewMemory()
	svc := service.NewService(store, nil, quietLogger())
	ctx := context.Background()

	now := time.Now()
	firstDay := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for _, tx := range []models.Transaction{
		{ChildID: "child-1", Amount: 20, Type: models.TransactionExpense, Category: models.CategoryFood, OccurredAt: firstDay},
		{ChildID: "child-1", Amount: 7.5, Type: models.TransactionExpense, Category: models.CategoryLuxury, OccurredAt: firstDay.Add(time.Hour)},
		{ChildID: "child-1", Amount: 5, Type: models.TransactionIncome, OccurredAt: firstDay.Add(time.Hour)},
		{ChildID: "child-1", Amount: 100, Type: models.TransactionExpense, Category: models.CategoryFood, OccurredAt: firstDay.Add(-time.Second)},
		{ChildID: "child-2", Amount: 50, Type: models.TransactionExpense, Category: models.CategoryFood, OccurredAt: firstDay},
	} {
		require.NoError(t, store.CreateTransaction(ctx, &tx))
	}

	spent, err := svc.MonthlySpent(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, 27.5, spent.TotalSpent)
	assert.Equal(t, firstDay.Format("2006-01"), spent.Month)
}
