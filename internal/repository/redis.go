package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lendhub/internal/config"
	"lendhub/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisAnnotationCache keeps per-item last/next booking annotations in Redis
// with a short TTL. A miss returns (nil, nil).
type RedisAnnotationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisAnnotationCache(client *redis.Client, ttl time.Duration) *RedisAnnotationCache {
	return &RedisAnnotationCache{client: client, ttl: ttl}
}

func annotationKey(itemID int64) string {
	return fmt.Sprintf("item_annotation:%d", itemID)
}

func (r *RedisAnnotationCache) GetAnnotation(ctx context.Context, itemID int64) (*models.ItemBookings, error) {
	if r.client == nil {
		return nil, errors.New("redis client is nil")
	}
	val, err := r.client.Get(ctx, annotationKey(itemID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation from redis: %w", err)
	}

	var ann models.ItemBookings
	if err := json.Unmarshal([]byte(val), &ann); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotation: %w", err)
	}
	return &ann, nil
}

func (r *RedisAnnotationCache) SetAnnotation(ctx context.Context, itemID int64, ann *models.ItemBookings) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(ann)
	if err != nil {
		return fmt.Errorf("failed to marshal annotation: %w", err)
	}
	if err := r.client.Set(ctx, annotationKey(itemID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set annotation in redis: %w", err)
	}
	return nil
}

func (r *RedisAnnotationCache) InvalidateAnnotation(ctx context.Context, itemID int64) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := r.client.Del(ctx, annotationKey(itemID)).Err(); err != nil {
		return fmt.Errorf("failed to delete annotation from redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
