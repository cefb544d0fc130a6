package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Dan9191/allowance-service/internal/models"
)

// Window is the length of the trailing aggregation window
const Window = 7 * 24 * time.Hour

// WeeklyStore is the storage the aggregator reads from and writes to
type WeeklyStore interface {
	FindTransactionsInRange(ctx context.Context, from, to time.Time) ([]models.Transaction, error)
	FindPocketMoneyInRange(ctx context.Context, from, to time.Time) ([]models.PocketMoney, error)
	UpsertWeeklySummary(ctx context.Context, s *models.WeeklySummary) error
}

// Aggregator builds the weekly summaries and credit scores
type Aggregator struct {
	store     WeeklyStore
	scorer    Scorer
	picker    ScorePicker
	publisher SummaryPublisher
	alerter   RunAlerter
	workers   int
	loc       *time.Location
	log       *logrus.Logger
}

// NewAggregator initializes an aggregator. scorer may be nil, in which case
// every score comes from picker.
func NewAggregator(store WeeklyStore, scorer Scorer, picker ScorePicker, workers int, log *logrus.Logger) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		store:   store,
		scorer:  scorer,
		picker:  picker,
		workers: workers,
		loc:     time.UTC,
		log:     log,
	}
}

// SetLocation sets the timezone whose midnight starts a summary week
func (a *Aggregator) SetLocation(loc *time.Location) {
	if loc != nil {
		a.loc = loc
	}
}

// WeekStart returns the key of the week ending at asOf: midnight in loc of
// the day asOf-7d falls on. Fires within the same day share a key.
func WeekStart(asOf time.Time, loc *time.Location) time.Time {
	from := asOf.Add(-Window).In(loc)
	return time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
}

// SetPublisher announces every written summary through p
func (a *Aggregator) SetPublisher(p SummaryPublisher) {
	a.publisher = p
}

// SetAlerter reports runs with skipped children through al
func (a *Aggregator) SetAlerter(al RunAlerter) {
	a.alerter = al
}

// childInput is everything one child did inside the window
type childInput struct {
	transactions []models.Transaction
	pocketMoney  []models.PocketMoney
}

// RunWeeklyAggregation summarizes every child active in [asOf-7d, asOf) and
// upserts one summary per child keyed by WeekStart. A child that fails is
// logged, reported and skipped; only failing to read the window aborts the run.
func (a *Aggregator) RunWeeklyAggregation(ctx context.Context, asOf time.Time) (*models.RunReport, error) {
	started := time.Now()
	from := asOf.Add(-Window)
	weekStart := WeekStart(asOf, a.loc)
	report := &models.RunReport{AsOf: asOf, WeekStart: weekStart}

	transactions, err := a.store.FindTransactionsInRange(ctx, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	grants, err := a.store.FindPocketMoneyInRange(ctx, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to read pocket money: %w", err)
	}

	inputs := groupByChild(transactions, grants, from, asOf)
	childIDs := make([]string, 0, len(inputs))
	for id := range inputs {
		childIDs = append(childIDs, id)
	}
	sort.Strings(childIDs)

	a.log.WithFields(logrus.Fields{
		"as_of":      asOf.Format(time.RFC3339),
		"week_start": weekStart.Format(time.RFC3339),
		"children":   len(childIDs),
	}).Info("Running weekly aggregation")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.workers)
	for _, childID := range childIDs {
		in := inputs[childID]
		g.Go(func() error {
			summary, fallback, err := a.summarizeChild(ctx, childID, weekStart, in)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.WithError(err).WithField("child_id", childID).Error("Skipping child in weekly aggregation")
				report.Failures = append(report.Failures, models.ChildFailure{ChildID: childID, Error: err.Error()})
				return nil
			}
			if fallback {
				report.Fallbacks++
			}
			report.Summaries = append(report.Summaries, *summary)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Summaries, func(i, j int) bool { return report.Summaries[i].ChildID < report.Summaries[j].ChildID })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].ChildID < report.Failures[j].ChildID })
	report.Duration = time.Since(started)

	a.log.WithFields(logrus.Fields{
		"week_start": weekStart.Format(time.RFC3339),
		"summarized": len(report.Summaries),
		"failed":     len(report.Failures),
		"fallbacks":  report.Fallbacks,
		"duration":   report.Duration.String(),
	}).Info("Weekly aggregation finished")

	if report.Failed() && a.alerter != nil {
		if err := a.alerter.SendRunAlert(report); err != nil {
			a.log.WithError(err).Warn("Failed to send weekly aggregation alert")
		}
	}
	return report, nil
}

// summarizeChild computes, scores and stores one child's week. The boolean
// result tells whether the score came from the local fallback.
func (a *Aggregator) summarizeChild(ctx context.Context, childID string, weekStart time.Time, in childInput) (*models.WeeklySummary, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	summary := Summarize(childID, weekStart, in.transactions, in.pocketMoney)
	fallback := a.assignScore(ctx, &summary)
	summary.UpdatedAt = time.Now().UTC()

	if err := a.store.UpsertWeeklySummary(ctx, &summary); err != nil {
		return nil, false, fmt.Errorf("failed to upsert weekly summary: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"child_id":     childID,
		"tag":          summary.Tag,
		"credit_score": summary.CreditScore,
		"score_source": summary.ScoreSource,
	}).Info("Weekly summary updated")

	if a.publisher != nil {
		if err := a.publisher.PublishSummary(ctx, &summary); err != nil {
			a.log.WithError(err).WithField("child_id", childID).Warn("Failed to publish weekly summary")
		}
	}
	return &summary, fallback, nil
}

// assignScore sets Tag, CreditScore and ScoreSource. The tag always comes
// from the ratio rules; the collaborator only supplies a score inside that
// tag's range. It returns true when the local picker was used.
func (a *Aggregator) assignScore(ctx context.Context, s *models.WeeklySummary) bool {
	s.Tag = DeriveTag(Ratios(s))
	rng, _ := models.ScoreRangeFor(s.Tag)

	if a.scorer != nil {
		score, err := a.scorer.Score(ctx, s.Features())
		if err == nil {
			var credit int
			if credit, err = acceptScore(score, s.Tag, rng); err == nil {
				s.CreditScore = credit
				s.ScoreSource = models.ScoreSourceRemote
				return false
			}
		}
		a.log.WithError(err).WithFields(logrus.Fields{
			"child_id": s.ChildID,
			"tag":      s.Tag,
		}).Warn("Remote score not usable, using local score")
	}

	s.CreditScore = a.picker.Pick(rng)
	s.ScoreSource = models.ScoreSourceFallback
	return true
}

// acceptScore validates a collaborator answer against the rule-derived tag
func acceptScore(score *models.Score, ruleTag models.Tag, rng models.ScoreRange) (int, error) {
	if score.Tag != "" && score.Tag != ruleTag {
		return 0, fmt.Errorf("remote tag %q disagrees with %q", score.Tag, ruleTag)
	}
	if score.CreditScore == nil {
		return 0, fmt.Errorf("remote answer for %q has no credit score", ruleTag)
	}
	if !rng.Contains(*score.CreditScore) {
		return 0, fmt.Errorf("remote score %d outside %q range [%d, %d]", *score.CreditScore, ruleTag, rng.Min, rng.Max)
	}
	return *score.CreditScore, nil
}

// groupByChild buckets records by child, keeping only those inside [from, to)
func groupByChild(transactions []models.Transaction, grants []models.PocketMoney, from, to time.Time) map[string]childInput {
	inputs := make(map[string]childInput)
	inWindow := func(t time.Time) bool {
		return !t.Before(from) && t.Before(to)
	}
	for _, tx := range transactions {
		if !inWindow(tx.OccurredAt) {
			continue
		}
		in := inputs[tx.ChildID]
		in.transactions = append(in.transactions, tx)
		inputs[tx.ChildID] = in
	}
	for _, pm := range grants {
		if !inWindow(pm.OccurredAt) {
			continue
		}
		in := inputs[pm.ChildID]
		in.pocketMoney = append(in.pocketMoney, pm)
		inputs[pm.ChildID] = in
	}
	return inputs
}

// Summarize computes the totals of one child's week. Tag and score are left
// empty.
func Summarize(childID string, weekStart time.Time, transactions []models.Transaction, grants []models.PocketMoney) models.WeeklySummary {
	income := decimal.Zero
	expense := decimal.Zero
	donated := decimal.Zero
	spend := make(map[models.Category]decimal.Decimal, len(models.SpendCategories))
	for _, c := range models.SpendCategories {
		spend[c] = decimal.Zero
	}

	for _, pm := range grants {
		income = income.Add(decimal.NewFromFloat(pm.Amount))
	}
	for _, tx := range transactions {
		amount := decimal.NewFromFloat(tx.Amount)
		if tx.Type == models.TransactionIncome {
			income = income.Add(amount)
			continue
		}
		expense = expense.Add(amount)
		if tx.IsDonation() {
			donated = donated.Add(amount)
			continue
		}
		c := models.NormalizeCategory(string(tx.Category))
		spend[c] = spend[c].Add(amount)
	}

	summary := models.WeeklySummary{
		ChildID:          childID,
		WeekStart:        weekStart,
		TotalIncome:      income.InexactFloat64(),
		TotalExpense:     expense.InexactFloat64(),
		Savings:          income.Sub(expense).InexactFloat64(),
		TransactionCount: len(transactions),
		DonatedAmount:    donated.InexactFloat64(),
		CategorySpend:    make(map[models.Category]float64, len(spend)),
	}
	for c, v := range spend {
		summary.CategorySpend[c] = v.InexactFloat64()
	}
	if summary.TransactionCount > 0 {
		summary.AvgTransactionAmount = expense.Div(decimal.NewFromInt(int64(summary.TransactionCount))).InexactFloat64()
	}
	summary.TopCategory = topCategory(spend, donated)
	return summary
}

// topCategory returns the category with the largest spend, preferring the
// earlier category on ties and "other" when nothing was spent
func topCategory(spend map[models.Category]decimal.Decimal, donated decimal.Decimal) models.Category {
	top := models.CategoryOther
	best := decimal.Zero
	for _, c := range models.Categories {
		v := spend[c]
		if c == models.CategoryDonation {
			v = donated
		}
		if v.GreaterThan(best) {
			best = v
			top = c
		}
	}
	return top
}
