// Package scheduler runs the daily sourcing trigger.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/CurationsLA/lemon/internal/logger"
)

// Job is the work a scheduled trigger performs.
type Job func(ctx context.Context)

// Scheduler fires the sourcing flow on a cron spec. The publish flow is
// never scheduled; drafts stay a manual operation.
type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger
}

// New creates a Scheduler with the given cron spec wired to job.
func New(spec string, job Job, log logger.Logger) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		log.Info("scheduled run triggered", logger.String("spec", spec))
		job(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	return &Scheduler{cron: c, log: log}, nil
}

// Start begins firing the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
