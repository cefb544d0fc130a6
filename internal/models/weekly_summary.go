package models

import "time"

// Tag describes a child's financial behaviour over a week
type Tag string

const (
	TagTopSaver     Tag = "Top Saver"
	TagAverageSaver Tag = "Average Saver"
	TagBalanced     Tag = "Balanced"
	TagBigSpender   Tag = "Big Spender"
	TagOverspender  Tag = "Overspender"
)

// ScoreRange is an inclusive credit score interval
type ScoreRange struct {
	Min int
	Max int
}

// Contains reports whether score lies within the range
func (r ScoreRange) Contains(score int) bool {
	return score >= r.Min && score <= r.Max
}

var scoreRanges = map[Tag]ScoreRange{
	TagTopSaver:     {Min: 85, Max: 100},
	TagAverageSaver: {Min: 70, Max: 90},
	TagBalanced:     {Min: 60, Max: 85},
	TagBigSpender:   {Min: 45, Max: 75},
	TagOverspender:  {Min: 30, Max: 60},
}

// ScoreRangeFor returns the credit score range for tag
func ScoreRangeFor(tag Tag) (ScoreRange, bool) {
	r, ok := scoreRanges[tag]
	return r, ok
}

// WeeklySummary is the aggregated view of one child's week. There is at most
// one per (ChildID, WeekStart).
type WeeklySummary struct {
	ID                   string               `json:"id" bson:"_id,omitempty"`
	ChildID              string               `json:"child_id" bson:"childId"`
	WeekStart            time.Time            `json:"week_start" bson:"weekStart"`
	TotalIncome          float64              `json:"total_income" bson:"totalIncome"`
	TotalExpense         float64              `json:"total_expense" bson:"totalExpense"`
	Savings              float64              `json:"savings" bson:"savings"`
	TransactionCount     int                  `json:"transaction_count" bson:"transactionCount"`
	AvgTransactionAmount float64              `json:"avg_transaction_amount" bson:"avgTransactionAmount"`
	CategorySpend        map[Category]float64 `json:"category_spend" bson:"categorySpend"`
	DonatedAmount        float64              `json:"donated_amount" bson:"donatedAmount"`
	TopCategory          Category             `json:"top_category" bson:"topCategory"`
	Tag                  Tag                  `json:"tag" bson:"tag"`
	CreditScore          int                  `json:"credit_score" bson:"creditScore"`
	ScoreSource          string               `json:"score_source" bson:"scoreSource"`
	UpdatedAt            time.Time            `json:"updated_at" bson:"updatedAt"`
}

// Score sources recorded on a summary
const (
	ScoreSourceRemote   = "remote"
	ScoreSourceFallback = "fallback"
)

// ScoringFeatures is the feature set sent to the scoring collaborator
type ScoringFeatures struct {
	TotalIncome          float64  `json:"totalIncome"`
	TotalExpense         float64  `json:"totalExpense"`
	Savings              float64  `json:"savings"`
	NoOfTransactions     int      `json:"noOfTransactions"`
	AvgTransactionAmount float64  `json:"avgTransactionAmount"`
	DonatedAmount        float64  `json:"donatedAmount"`
	FoodSpend            float64  `json:"foodSpend"`
	EducationSpend       float64  `json:"educationSpend"`
	EntertainmentSpend   float64  `json:"entertainmentSpend"`
	LuxurySpend          float64  `json:"luxurySpend"`
	OtherSpend           float64  `json:"otherSpend"`
	TopCategory          Category `json:"topCategory"`
}

// Features extracts the scoring feature set from a summary
func (s *WeeklySummary) Features() ScoringFeatures {
	return ScoringFeatures{
		TotalIncome:          s.TotalIncome,
		TotalExpense:         s.TotalExpense,
		Savings:              s.Savings,
		NoOfTransactions:     s.TransactionCount,
		AvgTransactionAmount: s.AvgTransactionAmount,
		DonatedAmount:        s.DonatedAmount,
		FoodSpend:            s.CategorySpend[CategoryFood],
		EducationSpend:       s.CategorySpend[CategoryEducation],
		EntertainmentSpend:   s.CategorySpend[CategoryEntertainment],
		LuxurySpend:          s.CategorySpend[CategoryLuxury],
		OtherSpend:           s.CategorySpend[CategoryOther],
		TopCategory:          s.TopCategory,
	}
}

// Score is the scoring collaborator's answer. CreditScore is nil when the
// collaborator only predicted a tag.
type Score struct {
	Tag         Tag
	CreditScore *int
}
