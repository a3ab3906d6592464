// Package lock provides the named short-lived locks used to serialize
// recalculations of one tenant/year.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

// RedisLocker obtains locks through redislock.
type RedisLocker struct {
	client *redislock.Client
	retry  redislock.RetryStrategy
}

// NewRedisLocker creates a RedisLocker that retries every backoff until wait elapses.
func NewRedisLocker(rdb redis.UniversalClient, backoff, wait time.Duration) *RedisLocker {
	attempts := 1
	if backoff > 0 {
		attempts = int(wait / backoff)
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		retry:  redislock.LimitRetry(redislock.LinearBackoff(backoff), attempts),
	}
}

// Obtain acquires key for ttl.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (port.Lock, error) {
	lk, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("lock.RedisLocker.Obtain: %w", err)
	}
	return lk, nil
}
