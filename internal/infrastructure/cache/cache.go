// Package cache stores raw recipe backend responses in process or in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrKeyNotFound is returned on a cache miss
var ErrKeyNotFound = errors.New("key not found in cache")

// Cache stores raw backend responses
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	InvalidatePattern(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Cache = (*LocalCache)(nil)
	_ Cache = (*RedisClient)(nil)
)

// New builds the cache selected by cache.driver. When Redis is selected but
// unreachable the in-memory cache is used instead.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Cache, error) {
	switch cfg.Cache.Driver {
	case "redis":
		r, err := NewRedisClient(ctx, cfg, logger)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
			return NewLocalCache(cfg.Cache.MaxSize), nil
		}
		return r, nil
	case "memory", "":
		logger.Info("Using in-memory cache", zap.Int("max_size", cfg.Cache.MaxSize))
		return NewLocalCache(cfg.Cache.MaxSize), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
