// Package lease provides a redis-backed mutual exclusion lease for background jobs.
package lease

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// release deletes the key only when we still own it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease holds a key with SET NX PX for at most TTL.
// A crashed holder loses the lease when the TTL runs out.
type RedisLease struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLease(rdb *redis.Client, key string, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisLease{rdb: rdb, key: key, ttl: ttl, token: uuid.NewString()}
}

// Acquire reports whether this process now holds the lease.
func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	err := l.rdb.SetArgs(ctx, l.key, l.token, redis.SetArgs{Mode: "NX", TTL: l.ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *RedisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
