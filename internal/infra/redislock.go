// README: Redis-backed advisory lock for short check-then-act critical sections.
package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker holds a key with SET NX + TTL. The TTL bounds how long a crashed
// holder can block other writers.
type RedisLocker struct {
	redis *redis.Client
}

func NewRedisLocker(redis *redis.Client) *RedisLocker {
	return &RedisLocker{redis: redis}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.redis.SetNX(ctx, key, "1", ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.redis.Del(ctx, key).Err()
}
