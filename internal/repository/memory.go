package repository

import (
	"context"
	"sync"
	"time"

	"lendhub/internal/models"
)

// MemoryAnnotationCache is the in-process fallback cache. Entries expire
// lazily on read.
type MemoryAnnotationCache struct {
	entries sync.Map
	ttl     time.Duration
}

type memoryEntry struct {
	ann       *models.ItemBookings
	expiresAt time.Time
}

func NewMemoryAnnotationCache(ttl time.Duration) *MemoryAnnotationCache {
	return &MemoryAnnotationCache{ttl: ttl}
}

func (c *MemoryAnnotationCache) GetAnnotation(ctx context.Context, itemID int64) (*models.ItemBookings, error) {
	val, ok := c.entries.Load(itemID)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.entries.Delete(itemID)
		return nil, nil
	}
	return entry.ann, nil
}

func (c *MemoryAnnotationCache) SetAnnotation(ctx context.Context, itemID int64, ann *models.ItemBookings) error {
	c.entries.Store(itemID, memoryEntry{ann: ann, expiresAt: time.Now().Add(c.ttl)})
	return nil
}

func (c *MemoryAnnotationCache) InvalidateAnnotation(ctx context.Context, itemID int64) error {
	c.entries.Delete(itemID)
	return nil
}
