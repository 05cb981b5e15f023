// Package lock provides the keyed locks that serialize draft commits and
// returns across engine instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	apptrade "github.com/hospital/pharmacy/internal/application/trade"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisLocker obtains locks through redislock. Keys expire after TTL so a
// crashed holder cannot block a document forever.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker on client
func NewRedisLocker(client redislock.RedisClient, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    cfg.TTL,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(cfg.RetryDelay), cfg.RetryCount),
		logger: logger.Named("redis_locker"),
	}
}

// Obtain takes key, retrying with linear backoff
func (l *RedisLocker) Obtain(ctx context.Context, key string) (apptrade.Lock, error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("Lock not obtained", zap.String("key", key))
		return nil, busy(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &redisLock{lock: lock}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

// Release ignores a lock that already expired
func (r *redisLock) Release(ctx context.Context) error {
	err := r.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

func busy(key string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		fmt.Sprintf("document is being processed by another request (%s)", key))
}

var _ apptrade.Locker = (*RedisLocker)(nil)
