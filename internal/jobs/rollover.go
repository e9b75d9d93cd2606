// Package jobs runs the background maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"naxovate-backend/internal/metrics"
	"naxovate-backend/internal/realtime"
)

type Rollover interface {
	RolloverExpired(ctx context.Context, now time.Time) (downgraded, pastDue int64, err error)
}

// PeriodRollover closes out subscriptions whose billing period has ended.
type PeriodRollover struct {
	store   Rollover
	events  realtime.Publisher
	log     logrus.FieldLogger
	timeout time.Duration
	now     func() time.Time
}

func NewPeriodRollover(store Rollover, events realtime.Publisher, log logrus.FieldLogger) *PeriodRollover {
	return &PeriodRollover{
		store:   store,
		events:  events,
		log:     log,
		timeout: time.Minute,
		now:     time.Now,
	}
}

// RunOnce performs one rollover pass.
func (j *PeriodRollover) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	downgraded, pastDue, err := j.store.RolloverExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("period rollover: %w", err)
	}
	metrics.RecordRollover(downgraded, pastDue)

	if downgraded > 0 || pastDue > 0 {
		j.log.WithFields(logrus.Fields{
			"downgraded": downgraded,
			"past_due":   pastDue,
		}).Info("billing periods rolled over")
		j.events.Publish(realtime.TopicAdmin, realtime.EventSubscriptionSaved, map[string]int64{
			"downgraded": downgraded,
			"past_due":   pastDue,
		})
	}
	return nil
}

// Scheduler wraps a cron runner with the application's jobs.
type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
}

// NewScheduler registers the rollover job on the given cron spec, for
// example "@hourly" or "*/15 * * * *".
func NewScheduler(spec string, job *PeriodRollover, log logrus.FieldLogger) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(spec, func() {
		if err := job.RunOnce(context.Background()); err != nil {
			log.WithError(err).Error("scheduled job failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("job scheduler started")
}

// Stop waits for running jobs or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("job scheduler stop timed out")
	}
}
