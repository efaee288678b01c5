package leader

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaseStore grants a single holder exclusive ownership of a key for a TTL.
type LeaseStore interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Renew extends the lease only while token still holds it.
	Renew(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Release drops the lease only while token still holds it.
	Release(ctx context.Context, key, token string) error
}

var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisLease implements LeaseStore with SET NX PX and token-guarded Lua scripts.
type RedisLease struct {
	client redis.Scripter
	setNX  func(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd
}

var _ LeaseStore = (*RedisLease)(nil)

func NewRedisLease(client *redis.Client) *RedisLease {
	return &RedisLease{client: client, setNX: client.SetNX}
}

func (r *RedisLease) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := r.setNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lease acquire %s: %w", key, err)
	}
	return ok, nil
}

func (r *RedisLease) Renew(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, r.client, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("lease renew %s: %w", key, err)
	}
	return n == 1, nil
}

func (r *RedisLease) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("lease release %s: %w", key, err)
	}
	return nil
}
