// internal/queue/queue.go
package queue

import (
	"context"
	"fmt"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"

	"github.com/hibiken/asynq"
)

// Enqueuer is what producers depend on. Tests use fakes.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// Client enqueues tasks fail-open: when Redis is unreachable the
// enqueue is logged and dropped so the triggering request still
// succeeds. Exhausted tasks are archived, not deleted, so operators can
// inspect and re-run them.
type Client struct {
	inner    *asynq.Client
	maxRetry int
	logger   logger.Logger
}

// NewClient builds the producing side of the queue.
func NewClient(redisCfg config.RedisConfig, queueCfg config.QueueConfig, log logger.Logger) *Client {
	return &Client{
		inner: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisCfg.Address,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}),
		maxRetry: queueCfg.MaxAttempts - 1,
		logger:   log,
	}
}

// Enqueue submits a task. MaxRetry counts retries after the first
// attempt, so attempts total queueCfg.MaxAttempts.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := c.inner.EnqueueContext(ctx, task, asynq.MaxRetry(c.maxRetry))
	if err != nil {
		c.logger.Warn("Enqueue failed, continuing without background job", map[string]interface{}{
			"taskType": task.Type(),
			"error":    err.Error(),
		})
		metrics.QueueJobsEnqueued.WithLabelValues(task.Type(), "dropped").Inc()
		return nil
	}

	c.logger.Debug("Task enqueued", map[string]interface{}{
		"taskType": task.Type(),
		"taskId":   info.ID,
		"queue":    info.Queue,
	})
	metrics.QueueJobsEnqueued.WithLabelValues(task.Type(), "ok").Inc()
	return nil
}

// Close releases the underlying Redis connections.
func (c *Client) Close() error {
	return c.inner.Close()
}

// RetryDelay implements exponential backoff: base * 2^n for the nth
// retry, so with a 2s base the delays run 2s, 4s, 8s.
func RetryDelay(base time.Duration) asynq.RetryDelayFunc {
	return func(n int, err error, task *asynq.Task) time.Duration {
		return base * (1 << n)
	}
}

// NewServer builds the consuming side of the queue.
func NewServer(redisCfg config.RedisConfig, queueCfg config.QueueConfig, log logger.Logger) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Address,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		asynq.Config{
			Concurrency:    queueCfg.Concurrency,
			RetryDelayFunc: RetryDelay(config.GetDuration(queueCfg.BackoffBase)),
			Logger:         newAsynqLogger(log),
		},
	)
}

// asynqLogger adapts the structured logger to asynq's logging interface.
type asynqLogger struct {
	log logger.Logger
}

func newAsynqLogger(log logger.Logger) *asynqLogger {
	return &asynqLogger{log: log}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...), nil) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...), nil) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...), nil) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...), nil) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...), nil) }
