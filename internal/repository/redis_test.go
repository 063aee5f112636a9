package repository

import (
	"context"
	"testing"
	"time"

	"lendhub/internal/config"
	"lendhub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisAnnotationCache(t *testing.T) {
	mr, client := setupRedis(t)
	cache := NewRedisAnnotationCache(client, time.Minute)
	ctx := context.Background()

	t.Run("miss returns nil without error", func(t *testing.T) {
		ann, err := cache.GetAnnotation(ctx, 10)
		require.NoError(t, err)
		assert.Nil(t, ann)
	})

	t.Run("round trip", func(t *testing.T) {
		want := &models.ItemBookings{
			Last: &models.Booking{ID: 5, ItemID: 10, Status: models.StatusApproved},
			Next: &models.Booking{ID: 6, ItemID: 10, Status: models.StatusWaiting},
		}
		require.NoError(t, cache.SetAnnotation(ctx, 10, want))

		got, err := cache.GetAnnotation(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(5), got.Last.ID)
		assert.Equal(t, int64(6), got.Next.ID)
	})

	t.Run("entries expire with the TTL", func(t *testing.T) {
		require.NoError(t, cache.SetAnnotation(ctx, 11, &models.ItemBookings{}))
		mr.FastForward(2 * time.Minute)

		got, err := cache.GetAnnotation(ctx, 11)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalidate removes the entry", func(t *testing.T) {
		require.NoError(t, cache.SetAnnotation(ctx, 12, &models.ItemBookings{}))
		require.NoError(t, cache.InvalidateAnnotation(ctx, 12))

		got, err := cache.GetAnnotation(ctx, 12)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("errors surface once redis is gone", func(t *testing.T) {
		mr.Close()
		_, err := cache.GetAnnotation(ctx, 10)
		assert.Error(t, err)
	})
}

func TestMemoryAnnotationCache(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip and invalidate", func(t *testing.T) {
		cache := NewMemoryAnnotationCache(time.Minute)
		want := &models.ItemBookings{Last: &models.Booking{ID: 5}}

		require.NoError(t, cache.SetAnnotation(ctx, 10, want))
		got, err := cache.GetAnnotation(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		require.NoError(t, cache.InvalidateAnnotation(ctx, 10))
		got, err = cache.GetAnnotation(ctx, 10)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("expired entries read as misses", func(t *testing.T) {
		cache := NewMemoryAnnotationCache(-time.Second)
		require.NoError(t, cache.SetAnnotation(ctx, 10, &models.ItemBookings{}))

		got, err := cache.GetAnnotation(ctx, 10)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
