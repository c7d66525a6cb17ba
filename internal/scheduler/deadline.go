// internal/scheduler/deadline.go

// Package scheduler closes the application window when its deadline
// passes. It ticks every minute and reads the database directly so a
// stale cache cannot delay the close.
package scheduler

import (
	"context"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"

	"github.com/robfig/cron/v3"
)

// deadlineCloser is the single conditional update the tick performs.
type deadlineCloser interface {
	CloseIfDeadlinePassed(ctx context.Context, now time.Time) (bool, error)
}

// cacheInvalidator drops the cached window after an auto-close.
type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// DeadlineScheduler drives the periodic deadline check.
type DeadlineScheduler struct {
	closer      deadlineCloser
	invalidator cacheInvalidator
	spec        string
	cron        *cron.Cron
	logger      logger.Logger
	now         func() time.Time
}

func NewDeadlineScheduler(closer deadlineCloser, invalidator cacheInvalidator, cfg config.WindowConfig, log logger.Logger) *DeadlineScheduler {
	return &DeadlineScheduler{
		closer:      closer,
		invalidator: invalidator,
		spec:        cfg.CronSpec,
		logger:      log,
		now:         time.Now,
	}
}

// Start begins ticking on the configured cron spec.
func (s *DeadlineScheduler) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Tick(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Deadline scheduler started", map[string]interface{}{"spec": s.spec})
	return nil
}

// Stop halts the ticker and waits for a running tick to finish.
func (s *DeadlineScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Tick runs one deadline check. Errors are logged and swallowed so the
// next tick always runs; a tick with nothing to close is a no-op.
func (s *DeadlineScheduler) Tick(ctx context.Context) {
	closed, err := s.closer.CloseIfDeadlinePassed(ctx, s.now())
	if err != nil {
		s.logger.Error("Deadline check failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if !closed {
		return
	}

	metrics.WindowAutoCloses.Inc()
	s.logger.Info("Application window auto-closed", map[string]interface{}{"closedBy": "system"})
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}
