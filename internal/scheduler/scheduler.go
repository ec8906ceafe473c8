// Package scheduler runs the daily reminder and escalation job.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

// Scheduler owns the cron timer around the Job. Start registers the cadence and
// kicks off the timer; Stop cancels it and waits for a running job to finish.
type Scheduler struct {
	cron   *cron.Cron
	job    *Job
	cfg    *config.SchedulerConfig
	logger observability.Logger

	cancel context.CancelFunc
}

func New(cfg *config.SchedulerConfig, job *Job, logger observability.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		job:    job,
		cfg:    cfg,
		logger: logger.WithFields(map[string]interface{}{"component": "scheduler"}),
	}
}

func (s *Scheduler) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	_, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		if err := s.job.Run(ctx); err != nil {
			s.logger.Error("Scheduled run failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", "spec", s.cfg.CronSpec)
	return nil
}

// Stop cancels the job context and blocks until any in-flight run returns.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}
