package repository

import (
	"context"
	"sync/atomic"
	"time"

	"lendhub/internal/domain"
	"lendhub/internal/models"

	"github.com/rs/zerolog"
)

// FailoverAnnotationCache prefers the primary (Redis) cache and drops to the
// in-memory fallback when it errors. The primary is retried after a minute.
type FailoverAnnotationCache struct {
	primary   domain.AnnotationCache
	fallback  domain.AnnotationCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverAnnotationCache(primary, fallback domain.AnnotationCache, logger *zerolog.Logger) *FailoverAnnotationCache {
	return &FailoverAnnotationCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverAnnotationCache) markDown(err error) {
	c.logger.Error().Err(err).Msg("primary annotation cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverAnnotationCache) primaryUsable() bool {
	if !c.isDown.Load() {
		return true
	}
	if time.Since(time.Unix(0, c.lastCheck.Load())) > time.Minute {
		c.lastCheck.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (c *FailoverAnnotationCache) GetAnnotation(ctx context.Context, itemID int64) (*models.ItemBookings, error) {
	if c.primaryUsable() {
		ann, err := c.primary.GetAnnotation(ctx, itemID)
		if err == nil {
			c.isDown.Store(false)
			return ann, nil
		}
		c.markDown(err)
	}
	return c.fallback.GetAnnotation(ctx, itemID)
}

func (c *FailoverAnnotationCache) SetAnnotation(ctx context.Context, itemID int64, ann *models.ItemBookings) error {
	if c.primaryUsable() {
		err := c.primary.SetAnnotation(ctx, itemID, ann)
		if err == nil {
			c.isDown.Store(false)
			return nil
		}
		c.markDown(err)
	}
	return c.fallback.SetAnnotation(ctx, itemID, ann)
}

func (c *FailoverAnnotationCache) InvalidateAnnotation(ctx context.Context, itemID int64) error {
	// Invalidate both sides; a stale fallback entry would otherwise survive
	// a primary recovery.
	var primaryErr error
	if c.primaryUsable() {
		if err := c.primary.InvalidateAnnotation(ctx, itemID); err != nil {
			c.markDown(err)
			primaryErr = err
		}
	}
	if err := c.fallback.InvalidateAnnotation(ctx, itemID); err != nil {
		return err
	}
	return primaryErr
}
