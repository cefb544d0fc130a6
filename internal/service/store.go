package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dan9191/allowance-service/internal/models"
)

var (
	// ErrInvalidAmount is returned when an amount is not strictly positive
	ErrInvalidAmount = errors.New("amount must be greater than 0")
	// ErrInvalidType is returned for transaction types other than income or expense
	ErrInvalidType = errors.New("type must be income or expense")
	// ErrMissingChild is returned when a request does not name a child
	ErrMissingChild = errors.New("child id is required")
)

// TransactionStore is the append-only record of child transactions
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransactionsInRange(ctx context.Context, from, to time.Time) ([]models.Transaction, error)
	FindTransactionsByChild(ctx context.Context, childID string) ([]models.Transaction, error)
	FindChildTransactionsInRange(ctx context.Context, childID string, from, to time.Time) ([]models.Transaction, error)
}

// PocketMoneyStore is the append-only ledger of allowance grants
type PocketMoneyStore interface {
	CreatePocketMoney(ctx context.Context, pm *models.PocketMoney) error
	FindPocketMoneyInRange(ctx context.Context, from, to time.Time) ([]models.PocketMoney, error)
	FindPocketMoneyByChild(ctx context.Context, childID string) ([]models.PocketMoney, error)
}

// SummaryStore persists weekly summaries, one per (child, week start)
type SummaryStore interface {
	UpsertWeeklySummary(ctx context.Context, s *models.WeeklySummary) error
	FindWeeklySummariesByChild(ctx context.Context, childID string) ([]models.WeeklySummary, error)
}

// Store is implemented by every storage backend
type Store interface {
	TransactionStore
	PocketMoneyStore
	SummaryStore
	Close() error
}

// Scorer asks the scoring collaborator for a tag and credit score
type Scorer interface {
	Score(ctx context.Context, features models.ScoringFeatures) (*models.Score, error)
}

// BalanceUpdater keeps the child's balance in the account service in sync
type BalanceUpdater interface {
	AdjustBalance(ctx context.Context, childID string, delta float64) error
}

// SummaryPublisher announces freshly written summaries
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, s *models.WeeklySummary) error
}

// RunAlerter is told about runs that skipped children
type RunAlerter interface {
	SendRunAlert(report *models.RunReport) error
}
