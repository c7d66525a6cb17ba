// internal/workers/achievement/models.go
package achievement

import (
	"context"

	"docverify/internal/common/logger"
)

// creditStore is the repository surface the worker needs.
type creditStore interface {
	RecordCredit(ctx context.Context, ownerID, event, refID string, points int) (bool, error)
}

// Dependencies wires the worker.
type Dependencies struct {
	Credits creditStore
	Logger  logger.Logger
}
