package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dan9191/allowance-service/internal/models"
)

// Memory is an in-process store for local development and tests
type Memory struct {
	mu           sync.RWMutex
	transactions []models.Transaction
	pocketMoney  []models.PocketMoney
	summaries    map[summaryKey]models.WeeklySummary
}

type summaryKey struct {
	childID   string
	weekStart int64
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{summaries: make(map[summaryKey]models.WeeklySummary)}
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}

// CreateTransaction stores a new transaction
func (m *Memory) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, *tx)
	return nil
}

// FindTransactionsInRange retrieves transactions with from <= occurredAt < to
func (m *Memory) FindTransactionsInRange(_ context.Context, from, to time.Time) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Transaction
	for _, tx := range m.transactions {
		if inRange(tx.OccurredAt, from, to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// FindTransactionsByChild retrieves every transaction of a child, newest first
func (m *Memory) FindTransactionsByChild(_ context.Context, childID string) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Transaction
	for _, tx := range m.transactions {
		if tx.ChildID == childID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

// FindChildTransactionsInRange retrieves a child's transactions with from <= occurredAt < to
func (m *Memory) FindChildTransactionsInRange(_ context.Context, childID string, from, to time.Time) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Transaction
	for _, tx := range m.transactions {
		if tx.ChildID == childID && inRange(tx.OccurredAt, from, to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// CreatePocketMoney stores a new allowance grant
func (m *Memory) CreatePocketMoney(_ context.Context, pm *models.PocketMoney) error {
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pocketMoney = append(m.pocketMoney, *pm)
	return nil
}

// FindPocketMoneyInRange retrieves grants with from <= occurredAt < to
func (m *Memory) FindPocketMoneyInRange(_ context.Context, from, to time.Time) ([]models.PocketMoney, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PocketMoney
	for _, pm := range m.pocketMoney {
		if inRange(pm.OccurredAt, from, to) {
			out = append(out, pm)
		}
	}
	return out, nil
}

// FindPocketMoneyByChild retrieves every grant of a child, newest first
func (m *Memory) FindPocketMoneyByChild(_ context.Context, childID string) ([]models.PocketMoney, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PocketMoney
	for _, pm := range m.pocketMoney {
		if pm.ChildID == childID {
			out = append(out, pm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

// UpsertWeeklySummary stores s, replacing any summary of the same child and week start
func (m *Memory) UpsertWeeklySummary(_ context.Context, s *models.WeeklySummary) error {
	key := summaryKey{childID: s.ChildID, weekStart: s.WeekStart.UnixNano()}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.summaries[key]; ok {
		s.ID = existing.ID
	} else if s.ID == "" {
		s.ID = uuid.NewString()
	}
	stored := *s
	stored.CategorySpend = make(map[models.Category]float64, len(s.CategorySpend))
	for c, v := range s.CategorySpend {
		stored.CategorySpend[c] = v
	}
	m.summaries[key] = stored
	return nil
}

// FindWeeklySummariesByChild retrieves the summaries of a child, newest first
func (m *Memory) FindWeeklySummariesByChild(_ context.Context, childID string) ([]models.WeeklySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.WeeklySummary
	for _, s := range m.summaries {
		if s.ChildID == childID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.After(out[j].WeekStart) })
	return out, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
