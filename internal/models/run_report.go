package models

import "time"

// ChildFailure records why a child's summary could not be written
type ChildFailure struct {
	ChildID string `json:"child_id"`
	Error   string `json:"error"`
}

// RunReport is the outcome of one weekly aggregation run
type RunReport struct {
	AsOf      time.Time       `json:"as_of"`
	WeekStart time.Time       `json:"week_start"`
	Summaries []WeeklySummary `json:"summaries"`
	Failures  []ChildFailure  `json:"failures"`
	Fallbacks int             `json:"fallbacks"`
	Duration  time.Duration   `json:"duration"`
}

// Failed reports whether at least one child was skipped
func (r *RunReport) Failed() bool {
	return len(r.Failures) > 0
}
