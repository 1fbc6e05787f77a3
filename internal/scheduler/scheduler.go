package scheduler

import (
	"context"
	"time"

	"standoff-tracker/internal/logging"

	"github.com/sirupsen/logrus"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// FreshnessFunc reports when the job's data was last produced. The zero time
// means never.
type FreshnessFunc func(ctx context.Context) (time.Time, error)

// Scheduler runs a job on a fixed interval after an initial delay. Before
// each run it consults the freshness probe and skips the cycle when the data
// is still newer than one interval, so a restart does not trigger redundant
// external calls.
type Scheduler struct {
	name      string
	interval  time.Duration
	delay     time.Duration
	job       Job
	freshness FreshnessFunc
	log       *logrus.Entry
}

func New(name string, interval, delay time.Duration, job Job) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		delay:    delay,
		job:      job,
		log:      logging.Component("scheduler").WithField("job", name),
	}
}

// WithFreshness installs the skip-if-fresh probe.
func (s *Scheduler) WithFreshness(fn FreshnessFunc) *Scheduler {
	s.freshness = fn
	return s
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return
		}
	}

	s.runOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if s.shouldSkip(ctx) {
		s.log.Debug("Data still fresh, skipping cycle")
		return
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.WithError(err).Error("Scheduled job failed")
		return
	}
	s.log.WithField("took", time.Since(start).Round(time.Millisecond).String()).Debug("Scheduled job finished")
}

func (s *Scheduler) shouldSkip(ctx context.Context) bool {
	if s.freshness == nil {
		return false
	}
	last, err := s.freshness(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Freshness probe failed, running anyway")
		return false
	}
	if last.IsZero() {
		return false
	}
	return time.Since(last) < s.interval
}
