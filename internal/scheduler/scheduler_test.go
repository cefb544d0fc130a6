package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/allowance-service/internal/models"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []time.Time
}

func (r *recordingRunner) RunWeeklyAggregation(_ context.Context, asOf time.Time) (*models.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, asOf)
	return &models.RunReport{AsOf: asOf}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	_, err := New("every monday", time.UTC, &recordingRunner{}, quietLogger())
	require.Error(t, err)
}

func TestNew_NextFireIsMondayMorning(t *testing.T) {
	s, err := New("5 0 * * 1", time.UTC, &recordingRunner{}, quietLogger())
	require.NoError(t, err)

	entries := s.cron.Entries()
	require.Len(t, entries, 1)

	// Wednesday
	from := time.Date(2025, 5, 7, 15, 0, 0, 0, time.UTC)
	next := entries[0].Schedule.Next(from)
	assert.Equal(t, time.Date(2025, 5, 12, 0, 5, 0, 0, time.UTC), next)
}

func TestFire_UsesCurrentTime(t *testing.T) {
	runner := &recordingRunner{}
	s, err := New("5 0 * * 1", time.UTC, runner, quietLogger())
	require.NoError(t, err)

	fixed := time.Date(2025, 5, 12, 0, 5, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	s.fire()

	require.Len(t, runner.calls, 1)
	assert.Equal(t, fixed, runner.calls[0])
}
