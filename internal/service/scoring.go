package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/Dan9191/allowance-service/internal/models"
)

// Ratios returns the savings rate, expense ratio and donated ratio of a
// summary. All three are 0 when there was no income.
func Ratios(s *models.WeeklySummary) (savingsRate, expenseRatio, donatedRatio float64) {
	if s.TotalIncome == 0 {
		return 0, 0, 0
	}
	return s.Savings / s.TotalIncome, s.TotalExpense / s.TotalIncome, s.DonatedAmount / s.TotalIncome
}

// DeriveTag applies the ordered tag rules; the first match wins.
func DeriveTag(savingsRate, expenseRatio, donatedRatio float64) models.Tag {
	switch {
	case savingsRate >= 0.5 && donatedRatio >= 0.05:
		return models.TagTopSaver
	case savingsRate >= 0.3:
		return models.TagAverageSaver
	case expenseRatio <= 0.8:
		return models.TagBalanced
	case expenseRatio > 1.0:
		return models.TagOverspender
	default:
		return models.TagBigSpender
	}
}

// ScorePicker chooses a credit score inside a tag's range when the scoring
// collaborator cannot
type ScorePicker interface {
	Pick(r models.ScoreRange) int
}

// RandomPicker picks uniformly within the range. It is safe for concurrent use.
type RandomPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomPicker returns a picker seeded with seed, or with the clock when seed is 0
func NewRandomPicker(seed int64) *RandomPicker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomPicker{rnd: rand.New(rand.NewSource(seed))}
}

// Pick returns an integer in [r.Min, r.Max]
func (p *RandomPicker) Pick(r models.ScoreRange) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Min + p.rnd.Intn(r.Max-r.Min+1)
}

// MidpointPicker always picks the middle of the range, rounding down
type MidpointPicker struct{}

// Pick returns the midpoint of r
func (MidpointPicker) Pick(r models.ScoreRange) int {
	return r.Min + (r.Max-r.Min)/2
}
