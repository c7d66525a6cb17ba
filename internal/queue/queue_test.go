package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/logger"
	"docverify/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Retry Policy Tests
// ==========================

func TestRetryDelay_ExponentialBackoff(t *testing.T) {
	delay := RetryDelay(2 * time.Second)

	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{retry: 0, expected: 2 * time.Second},
		{retry: 1, expected: 4 * time.Second},
		{retry: 2, expected: 8 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, delay(tt.retry, nil, nil))
	}
}

// ==========================
// Enqueue Tests
// ==========================

func TestClient_Enqueue_FailOpenWhenRedisUnreachable(t *testing.T) {
	client := NewClient(
		config.RedisConfig{Address: "127.0.0.1:1"},
		config.QueueConfig{MaxAttempts: 3, BackoffBase: 2000},
		logger.NewTestLogger(t),
	)
	defer client.Close()

	task, err := NewOCRProcessTask("sub-1", "owner-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.NoError(t, client.Enqueue(ctx, task))
}

// ==========================
// Task Payload Tests
// ==========================

func TestNewOCRProcessTask(t *testing.T) {
	task, err := NewOCRProcessTask("sub-1", "owner-1")
	require.NoError(t, err)

	assert.Equal(t, TaskOCRProcess, task.Type())

	var payload OCRProcessPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "sub-1", payload.SubmissionID)
	assert.Equal(t, "owner-1", payload.OwnerID)
}

func TestNewAchievementCreditTask(t *testing.T) {
	task, err := NewAchievementCreditTask("owner-1", repository.AchievementEventOCRApproved, "sub-1", 50)
	require.NoError(t, err)

	assert.Equal(t, TaskAchievementCredit, task.Type())

	var payload AchievementCreditPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, repository.AchievementEventOCRApproved, payload.Event)
	assert.Equal(t, 50, payload.Points)
}
