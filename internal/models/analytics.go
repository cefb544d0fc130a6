package models

// MonthlySpent represents the expenses of a child in the current month
type MonthlySpent struct {
	ChildID    string  `json:"child_id"`
	Month      string  `json:"month"` // Format: YYYY-MM
	TotalSpent float64 `json:"total_spent"`
}
