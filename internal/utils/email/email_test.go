package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Dan9191/allowance-service/internal/models"
)

func TestAlertMessage(t *testing.T) {
	asOf := time.Date(2025, 5, 12, 0, 5, 0, 0, time.UTC)
	report := &models.RunReport{
		AsOf:      asOf,
		WeekStart: asOf.AddDate(0, 0, -7),
		Summaries: []models.WeeklySummary{{ChildID: "child-1"}},
		Failures: []models.ChildFailure{
			{ChildID: "child-2", Error: "failed to upsert weekly summary: connection refused"},
		},
		Fallbacks: 1,
	}

	assert.Equal(t, "Weekly summary run for 2025-05-05 skipped 1 children", alertSubject(report))

	body := alertBody(report)
	assert.Contains(t, body, "Summaries written: 1")
	assert.Contains(t, body, "Local fallback scores: 1")
	assert.Contains(t, body, "- child-2: failed to upsert weekly summary: connection refused")
}
