package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/Dan9191/allowance-service/internal/models"
)

// Repository provides postgres database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// OpenPostgres connects to postgres and verifies the connection
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateTransaction stores a new transaction
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	query := `
		INSERT INTO allowance.transactions (id, child_id, amount, type, category, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.ChildID, tx.Amount, string(tx.Type), string(tx.Category), tx.Description, tx.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindTransactionsInRange retrieves transactions with from <= occurred_at < to
func (r *Repository) FindTransactionsInRange(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	query := `
		SELECT id, child_id, amount, type, category, description, occurred_at
		FROM allowance.transactions
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at`
	return r.queryTransactions(ctx, query, from, to)
}

// FindTransactionsByChild retrieves every transaction of a child
func (r *Repository) FindTransactionsByChild(ctx context.Context, childID string) ([]models.Transaction, error) {
	query := `
		SELECT id, child_id, amount, type, category, description, occurred_at
		FROM allowance.transactions
		WHERE child_id = $1
		ORDER BY occurred_at DESC`
	return r.queryTransactions(ctx, query, childID)
}

// FindChildTransactionsInRange retrieves a child's transactions with from <= occurred_at < to
func (r *Repository) FindChildTransactionsInRange(ctx context.Context, childID string, from, to time.Time) ([]models.Transaction, error) {
	query := `
		SELECT id, child_id, amount, type, category, description, occurred_at
		FROM allowance.transactions
		WHERE child_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at`
	return r.queryTransactions(ctx, query, childID, from, to)
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var (
			tx       models.Transaction
			txType   string
			category string
		)
		if err := rows.Scan(&tx.ID, &tx.ChildID, &tx.Amount, &txType, &category, &tx.Description, &tx.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Type = models.TransactionType(txType)
		tx.Category = models.NormalizeCategory(category)
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// CreatePocketMoney stores a new allowance grant
func (r *Repository) CreatePocketMoney(ctx context.Context, pm *models.PocketMoney) error {
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	query := `
		INSERT INTO allowance.pocket_money (id, child_id, amount, granted_by, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, pm.ID, pm.ChildID, pm.Amount, pm.GrantedBy, pm.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to create pocket money: %w", err)
	}
	return nil
}

// FindPocketMoneyInRange retrieves grants with from <= occurred_at < to
func (r *Repository) FindPocketMoneyInRange(ctx context.Context, from, to time.Time) ([]models.PocketMoney, error) {
	query := `
		SELECT id, child_id, amount, granted_by, occurred_at
		FROM allowance.pocket_money
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at`
	return r.queryPocketMoney(ctx, query, from, to)
}

// FindPocketMoneyByChild retrieves every grant of a child
func (r *Repository) FindPocketMoneyByChild(ctx context.Context, childID string) ([]models.PocketMoney, error) {
	query := `
		SELECT id, child_id, amount, granted_by, occurred_at
		FROM allowance.pocket_money
		WHERE child_id = $1
		ORDER BY occurred_at DESC`
	return r.queryPocketMoney(ctx, query, childID)
}

func (r *Repository) queryPocketMoney(ctx context.Context, query string, args ...any) ([]models.PocketMoney, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find pocket money: %w", err)
	}
	defer rows.Close()

	var grants []models.PocketMoney
	for rows.Next() {
		var pm models.PocketMoney
		if err := rows.Scan(&pm.ID, &pm.ChildID, &pm.Amount, &pm.GrantedBy, &pm.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan pocket money: %w", err)
		}
		grants = append(grants, pm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pocket money: %w", err)
	}
	return grants, nil
}

// UpsertWeeklySummary inserts the summary or replaces the one stored for the
// same child and week start
func (r *Repository) UpsertWeeklySummary(ctx context.Context, s *models.WeeklySummary) error {
	spend, err := json.Marshal(s.CategorySpend)
	if err != nil {
		return fmt.Errorf("failed to encode category spend: %w", err)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query := `
		INSERT INTO allowance.weekly_summaries (
			id, child_id, week_start, total_income, total_expense, savings, transaction_count,
			avg_transaction_amount, category_spend, donated_amount, top_category, tag,
			credit_score, score_source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (child_id, week_start) DO UPDATE SET
			total_income = EXCLUDED.total_income,
			total_expense = EXCLUDED.total_expense,
			savings = EXCLUDED.savings,
			transaction_count = EXCLUDED.transaction_count,
			avg_transaction_amount = EXCLUDED.avg_transaction_amount,
			category_spend = EXCLUDED.category_spend,
			donated_amount = EXCLUDED.donated_amount,
			top_category = EXCLUDED.top_category,
			tag = EXCLUDED.tag,
			credit_score = EXCLUDED.credit_score,
			score_source = EXCLUDED.score_source,
			updated_at = EXCLUDED.updated_at
		RETURNING id`
	err = r.db.QueryRowContext(ctx, query,
		s.ID, s.ChildID, s.WeekStart, s.TotalIncome, s.TotalExpense, s.Savings, s.TransactionCount,
		s.AvgTransactionAmount, string(spend), s.DonatedAmount, string(s.TopCategory), string(s.Tag),
		s.CreditScore, s.ScoreSource, s.UpdatedAt).
		Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert weekly summary: %w", err)
	}
	return nil
}

// FindWeeklySummariesByChild retrieves the summaries of a child, newest first
func (r *Repository) FindWeeklySummariesByChild(ctx context.Context, childID string) ([]models.WeeklySummary, error) {
	query := `
		SELECT id, child_id, week_start, total_income, total_expense, savings, transaction_count,
			avg_transaction_amount, category_spend, donated_amount, top_category, tag,
			credit_score, score_source, updated_at
		FROM allowance.weekly_summaries
		WHERE child_id = $1
		ORDER BY week_start DESC`
	rows, err := r.db.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to find weekly summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.WeeklySummary
	for rows.Next() {
		var (
			s           models.WeeklySummary
			spend       []byte
			topCategory string
			tag         string
		)
		err := rows.Scan(&s.ID, &s.ChildID, &s.WeekStart, &s.TotalIncome, &s.TotalExpense, &s.Savings,
			&s.TransactionCount, &s.AvgTransactionAmount, &spend, &s.DonatedAmount, &topCategory, &tag,
			&s.CreditScore, &s.ScoreSource, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weekly summary: %w", err)
		}
		if err := json.Unmarshal(spend, &s.CategorySpend); err != nil {
			return nil, fmt.Errorf("failed to decode category spend: %w", err)
		}
		s.TopCategory = models.Category(topCategory)
		s.Tag = models.Tag(tag)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weekly summaries: %w", err)
	}
	return summaries, nil
}
