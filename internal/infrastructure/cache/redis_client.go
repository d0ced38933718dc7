package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
	scanBatch        = 100
)

// RedisClient shares cached backend responses between frontend replicas.
// Keys are namespaced with cache.prefix. Calls go through a circuit breaker
// so a dead Redis turns into fast misses instead of slow page renders.
type RedisClient struct {
	rdb     redis.UniversalClient
	prefix  string
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewRedisClient dials the configured server and fails when it does not
// answer PING
func NewRedisClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*RedisClient, error) {
	if cfg == nil {
		return nil, errors.New("redis: nil config")
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.RedisAddr()},
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Database,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout+time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr(), err)
	}

	logger.Info("Using Redis cache",
		zap.String("addr", cfg.RedisAddr()),
		zap.Int("db", cfg.Redis.Database),
		zap.String("prefix", cfg.Cache.Prefix))
	return NewRedisClientFrom(rdb, cfg.Cache.Prefix, logger), nil
}

// NewRedisClientFrom wraps an already connected client
func NewRedisClientFrom(rdb redis.UniversalClient, prefix string, logger *zap.Logger) *RedisClient {
	return &RedisClient{
		rdb:     rdb,
		prefix:  prefix,
		breaker: NewCircuitBreaker(breakerThreshold, breakerCooldown),
		logger:  logger.Named("redis"),
	}
}

// Client exposes the underlying client for the health probe
func (r *RedisClient) Client() redis.UniversalClient { return r.rdb }

func (r *RedisClient) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }

func (r *RedisClient) Close() error { return r.rdb.Close() }

// guard runs op behind the breaker. redis.Nil counts as success.
func (r *RedisClient) guard(op, key string, fn func() error) error {
	if err := r.breaker.Allow(); err != nil {
		return err
	}
	err := fn()
	if errors.Is(err, redis.Nil) {
		r.breaker.Record(nil)
		return err
	}
	r.breaker.Record(err)
	if err != nil {
		r.logger.Warn("Redis command failed",
			zap.String("op", op),
			zap.String("key", key),
			zap.Stringer("breaker", r.breaker.State()),
			zap.Error(err))
	}
	return err
}

func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.guard("get", key, func() (err error) {
		value, err = r.rdb.Get(ctx, r.prefix+key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.guard("set", key, func() error {
		return r.rdb.Set(ctx, r.prefix+key, value, ttl).Err()
	})
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	return r.guard("del", keys[0], func() error {
		return r.rdb.Unlink(ctx, full...).Err()
	})
}

// InvalidatePattern walks matching keys with SCAN and unlinks them a batch
// at a time
func (r *RedisClient) InvalidatePattern(ctx context.Context, pattern string) error {
	removed := 0
	err := r.guard("invalidate", pattern, func() error {
		iter := r.rdb.Scan(ctx, 0, r.prefix+pattern, scanBatch).Iterator()
		batch := make([]string, 0, scanBatch)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := r.rdb.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			removed += len(batch)
			batch = batch[:0]
			return nil
		}

		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == scanBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		return flush()
	})
	if err == nil {
		r.logger.Debug("Invalidated keys", zap.String("pattern", pattern), zap.Int("count", removed))
	}
	return err
}
