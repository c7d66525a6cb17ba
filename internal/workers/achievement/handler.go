// internal/workers/achievement/handler.go

// Package achievement consumes achievement:credit tasks emitted when a
// submission is approved. The audit row written with each credit makes
// redeliveries award nothing.
package achievement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/queue"

	"github.com/hibiken/asynq"
)

// Handler processes achievement:credit tasks.
type Handler struct {
	deps   Dependencies
	logger logger.Logger
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps, logger: deps.Logger}
}

// ProcessTask implements asynq.Handler.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var payload queue.AchievementCreditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		metrics.QueueJobsProcessed.WithLabelValues(queue.TaskAchievementCredit, "invalid").Inc()
		return fmt.Errorf("undecodable payload: %v: %w", err, asynq.SkipRetry)
	}

	recorded, err := h.deps.Credits.RecordCredit(ctx, payload.OwnerID, payload.Event, payload.RefID, payload.Points)
	if err != nil {
		metrics.QueueJobsProcessed.WithLabelValues(queue.TaskAchievementCredit, "failed").Inc()
		h.logger.Error("Achievement credit failed", map[string]interface{}{
			"ownerId": payload.OwnerID,
			"event":   payload.Event,
			"refId":   payload.RefID,
			"error":   err.Error(),
		})
		return err
	}

	if !recorded {
		h.logger.Info("Achievement credit already recorded, skipping", map[string]interface{}{
			"ownerId": payload.OwnerID,
			"event":   payload.Event,
			"refId":   payload.RefID,
		})
	} else {
		h.logger.Info("Achievement credited", map[string]interface{}{
			"ownerId": payload.OwnerID,
			"event":   payload.Event,
			"points":  payload.Points,
		})
	}

	metrics.QueueJobsProcessed.WithLabelValues(queue.TaskAchievementCredit, "ok").Inc()
	metrics.QueueJobDuration.WithLabelValues(queue.TaskAchievementCredit).Observe(time.Since(start).Seconds())
	return nil
}
