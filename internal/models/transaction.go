package models

import (
	"strings"
	"time"
)

// TransactionType distinguishes money coming in from money going out
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// ParseTransactionType returns the type for s, defaulting to expense
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case TransactionIncome:
		return TransactionIncome, true
	case TransactionExpense, "":
		return TransactionExpense, true
	}
	return "", false
}

// Transaction represents an income or expense logged by a child
type Transaction struct {
	ID          string          `json:"id" bson:"_id"`
	ChildID     string          `json:"child_id" bson:"childId"`
	Amount      float64         `json:"amount" bson:"amount"`
	Type        TransactionType `json:"type" bson:"type"`
	Category    Category        `json:"category" bson:"category"`
	Description string          `json:"description" bson:"description"`
	OccurredAt  time.Time       `json:"occurred_at" bson:"occurredAt"`
}

// IsDonation reports whether an expense counts as a donation: either it was
// stored under the donation category or its description mentions "donate".
func (t Transaction) IsDonation() bool {
	if t.Type != TransactionExpense {
		return false
	}
	if NormalizeCategory(string(t.Category)) == CategoryDonation {
		return true
	}
	return strings.Contains(strings.ToLower(t.Description), "donate")
}
