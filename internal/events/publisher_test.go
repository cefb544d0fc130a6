package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/allowance-service/internal/models"
)

func TestNewSummaryEvent(t *testing.T) {
	at := time.Date(2025, 5, 12, 0, 5, 0, 0, time.FixedZone("IST", 5*3600+1800))
	summary := &models.WeeklySummary{
		ID:          "summary-1",
		ChildID:     "child-1",
		Tag:         models.TagTopSaver,
		CreditScore: 90,
		TopCategory: models.CategoryFood,
	}

	body, err := newSummaryEvent(summary, at)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, SummaryUpserted, raw["type"])
	assert.Equal(t, "2025-05-11T18:35:00Z", raw["published_at"])

	inner, ok := raw["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "child-1", inner["child_id"])
	assert.Equal(t, "Top Saver", inner["tag"])
	assert.Equal(t, 90.0, inner["credit_score"])
}
