package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// NewRedisClient creates a new Redis client with the given configuration.
// Returns nil if Redis is not configured (host is empty).
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// New returns a Redis-backed cache, or NoopCache when client is nil.
func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) QueryCache {
	if client == nil {
		return NoopCache{}
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger.Named("cache")}
}

// RedisCache stores generated queries as JSON with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ QueryCache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, key string) (*models.GeneratedQuery, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var q models.GeneratedQuery
	if err := json.Unmarshal(val, &q); err != nil {
		// A corrupt entry is a miss; it is overwritten on the next Set.
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return &q, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, q *models.GeneratedQuery) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
