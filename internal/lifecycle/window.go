// internal/lifecycle/window.go
package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/models"

	"github.com/redis/go-redis/v9"
)

const windowCacheKey = "application_window"

// windowStore is the persistence surface the window machine needs.
type windowStore interface {
	Get(ctx context.Context) (*models.ApplicationWindow, error)
	Open(ctx context.Context, id string, deadline *time.Time, actor string) (bool, error)
	Close(ctx context.Context, id, actor string) (bool, error)
	SetDeadline(ctx context.Context, id string, deadline time.Time, actor string) (bool, error)
}

// WindowService mediates reads and mutations of the application window.
// Reads go through a short-lived Redis cache; every mutation
// invalidates it. The scheduler bypasses this service and reads the
// database directly so a stale cache cannot delay an auto-close.
type WindowService struct {
	store    windowStore
	cache    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewWindowService(store windowStore, cache *redis.Client, cfg config.WindowConfig, log logger.Logger) *WindowService {
	return &WindowService{
		store:    store,
		cache:    cache,
		cacheTTL: config.GetDuration(cfg.CacheTTL),
		logger:   log,
	}
}

// Get returns the current window, cache-aside.
func (s *WindowService) Get(ctx context.Context) (*models.ApplicationWindow, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, windowCacheKey).Result(); err == nil {
			var w models.ApplicationWindow
			if json.Unmarshal([]byte(cached), &w) == nil {
				return &w, nil
			}
		}
	}

	w, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(w); err == nil {
			if err := s.cache.Set(ctx, windowCacheKey, data, s.cacheTTL).Err(); err != nil {
				s.logger.Debug("Window cache write failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
	return w, nil
}

// IsOpen reports whether submissions are currently accepted. A passed
// deadline counts as closed even before the scheduler commits the close.
func (s *WindowService) IsOpen(ctx context.Context) (bool, error) {
	w, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	if !w.IsOpen {
		return false, nil
	}
	return !w.DeadlinePassed(time.Now()), nil
}

// Open opens the window with an optional deadline.
func (s *WindowService) Open(ctx context.Context, deadline *time.Time, actor string) (*models.ApplicationWindow, error) {
	w, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	opened, err := s.store.Open(ctx, w.ID, deadline, actor)
	if err != nil {
		return nil, err
	}
	if !opened {
		return nil, errors.NewInvalidTransitionError("open", "open")
	}

	s.invalidate(ctx)
	s.logger.Info("Application window opened", map[string]interface{}{"actor": actor})
	return s.store.Get(ctx)
}

// Close closes the window.
func (s *WindowService) Close(ctx context.Context, actor string) (*models.ApplicationWindow, error) {
	w, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	closed, err := s.store.Close(ctx, w.ID, actor)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, errors.NewInvalidTransitionError("closed", "closed")
	}

	s.invalidate(ctx)
	s.logger.Info("Application window closed", map[string]interface{}{"actor": actor})
	return s.store.Get(ctx)
}

// SetDeadline moves the deadline of the open window. The new deadline
// must be in the future; a past deadline would race the auto-closer.
func (s *WindowService) SetDeadline(ctx context.Context, deadline time.Time, actor string) (*models.ApplicationWindow, error) {
	if !deadline.After(time.Now()) {
		return nil, errors.NewValidationError("Deadline must be in the future", "deadline: "+deadline.Format(time.RFC3339))
	}

	w, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.SetDeadline(ctx, w.ID, deadline, actor)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, errors.NewValidationError("Window is closed", "deadline can only change while the window is open")
	}

	s.invalidate(ctx)
	s.logger.Info("Application deadline updated", map[string]interface{}{
		"deadline": deadline.Format(time.RFC3339),
		"actor":    actor,
	})
	return s.store.Get(ctx)
}

// Invalidate drops the cached window. The scheduler calls this after an
// auto-close so API reads converge immediately.
func (s *WindowService) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *WindowService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, windowCacheKey).Err(); err != nil {
		s.logger.Debug("Window cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
