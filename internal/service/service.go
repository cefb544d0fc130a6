package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/allowance-service/internal/models"
)

// Service handles pocket money and transaction business logic
type Service struct {
	repo    Store
	balance BalanceUpdater
	log     *logrus.Logger
	now     func() time.Time
}

// NewService initializes a new service. balance may be nil when no account
// service is configured.
func NewService(repo Store, balance BalanceUpdater, log *logrus.Logger) *Service {
	return &Service{repo: repo, balance: balance, log: log, now: time.Now}
}

// SpendRequest describes a transaction logged by a child
type SpendRequest struct {
	ChildID     string  `json:"childId"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

// AssignPocketMoney records an allowance grant and credits the child's balance
func (s *Service) AssignPocketMoney(ctx context.Context, childID, parentID string, amount float64) (*models.PocketMoney, error) {
	if strings.TrimSpace(childID) == "" {
		return nil, ErrMissingChild
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	pm := &models.PocketMoney{
		ID:         uuid.NewString(),
		ChildID:    childID,
		Amount:     amount,
		GrantedBy:  parentID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.repo.CreatePocketMoney(ctx, pm); err != nil {
		return nil, err
	}

	s.syncBalance(ctx, childID, amount)
	s.log.WithFields(logrus.Fields{"child_id": childID, "amount": amount}).Info("Pocket money assigned")
	return pm, nil
}

// SpendPocketMoney records an income or expense transaction. Expenses debit
// the child's balance, incomes credit it.
func (s *Service) SpendPocketMoney(ctx context.Context, req SpendRequest) (*models.Transaction, error) {
	if strings.TrimSpace(req.ChildID) == "" {
		return nil, ErrMissingChild
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	txType, ok := models.ParseTransactionType(req.Type)
	if !ok {
		return nil, ErrInvalidType
	}

	tx := &models.Transaction{
		ID:          uuid.NewString(),
		ChildID:     req.ChildID,
		Amount:      req.Amount,
		Type:        txType,
		Category:    models.NormalizeCategory(req.Category),
		Description: req.Description,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	delta := -tx.Amount
	if tx.Type == models.TransactionIncome {
		delta = tx.Amount
	}
	s.syncBalance(ctx, tx.ChildID, delta)
	s.log.WithFields(logrus.Fields{
		"child_id": tx.ChildID,
		"type":     tx.Type,
		"category": tx.Category,
		"amount":   tx.Amount,
	}).Info("Transaction recorded")
	return tx, nil
}

// TransactionHistory returns every transaction of a child
func (s *Service) TransactionHistory(ctx context.Context, childID string) ([]models.Transaction, error) {
	if strings.TrimSpace(childID) == "" {
		return nil, ErrMissingChild
	}
	return s.repo.FindTransactionsByChild(ctx, childID)
}

// PocketMoneyHistory returns every allowance grant of a child
func (s *Service) PocketMoneyHistory(ctx context.Context, childID string) ([]models.PocketMoney, error) {
	if strings.TrimSpace(childID) == "" {
		return nil, ErrMissingChild
	}
	return s.repo.FindPocketMoneyByChild(ctx, childID)
}

// MonthlySpent sums the child's expenses in the current calendar month
func (s *Service) MonthlySpent(ctx context.Context, childID string) (*models.MonthlySpent, error) {
	if strings.TrimSpace(childID) == "" {
		return nil, ErrMissingChild
	}
	now := s.now()
	firstDay := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonth := firstDay.AddDate(0, 1, 0)

	transactions, err := s.repo.FindChildTransactionsInRange(ctx, childID, firstDay, nextMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to read monthly transactions: %w", err)
	}

	total := decimal.Zero
	for _, tx := range transactions {
		if tx.Type == models.TransactionExpense {
			total = total.Add(decimal.NewFromFloat(tx.Amount))
		}
	}
	return &models.MonthlySpent{
		ChildID:    childID,
		Month:      firstDay.Format("2006-01"),
		TotalSpent: total.InexactFloat64(),
	}, nil
}

// WeeklySummaries returns the stored summaries of a child, newest first
func (s *Service) WeeklySummaries(ctx context.Context, childID string) ([]models.WeeklySummary, error) {
	if strings.TrimSpace(childID) == "" {
		return nil, ErrMissingChild
	}
	summaries, err := s.repo.FindWeeklySummariesByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly summaries: %w", err)
	}
	return summaries, nil
}

// syncBalance forwards a balance change to the account service. The local
// record is already stored, so failures are only logged.
func (s *Service) syncBalance(ctx context.Context, childID string, delta float64) {
	if s.balance == nil {
		return
	}
	if err := s.balance.AdjustBalance(ctx, childID, delta); err != nil {
		s.log.WithError(err).WithField("child_id", childID).Warn("Failed to sync child balance")
	}
}
