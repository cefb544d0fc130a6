package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/allowance-service/internal/models"
)

// Runner is the weekly aggregation entry point
type Runner interface {
	RunWeeklyAggregation(ctx context.Context, asOf time.Time) (*models.RunReport, error)
}

// Scheduler fires the weekly aggregation on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	log     *logrus.Logger
	timeout time.Duration
	now     func() time.Time
}

// New creates a scheduler running runner on spec (standard five-field cron)
// in loc. A fire is skipped while the previous run is still going.
func New(spec string, loc *time.Location, runner Runner, log *logrus.Logger) (*Scheduler, error) {
	logger := cron.PrintfLogger(log)
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner:  runner,
		log:     log,
		timeout: time.Hour,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("failed to schedule weekly aggregation %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.WithField("next_run", e.Next.Format(time.RFC3339)).Info("Weekly aggregation scheduled")
	}
}

// Stop stops scheduling and returns a context done when a running job finishes
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.log.Info("[CRON] Running weekly summary generation")
	if _, err := s.runner.RunWeeklyAggregation(ctx, s.now()); err != nil {
		s.log.WithError(err).Error("[CRON] Weekly summary generation failed")
	}
}
