// Package cache provides a Redis-backed prediction result cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/career-predictor/internal/prediction"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "career:predict:"

// Config holds Redis connection settings.
type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// PredictionCache implements prediction.Cache on top of Redis. Keys embed
// the model version, so a retrain naturally invalidates older entries and
// the TTL reclaims them.
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*PredictionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *PredictionCache {
	return &PredictionCache{client: client, ttl: ttl}
}

// Get returns the cached results for key.
func (c *PredictionCache) Get(ctx context.Context, key string) ([]prediction.Result, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached prediction: %w", err)
	}

	var results []prediction.Result
	if err := json.Unmarshal(val, &results); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached prediction: %w", err)
	}
	return results, true, nil
}

// Set stores results under key with the configured TTL.
func (c *PredictionCache) Set(ctx context.Context, key string, results []prediction.Result) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode prediction: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache prediction: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *PredictionCache) Close() error {
	return c.client.Close()
}
