package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisConfigOptions(t *testing.T) {
	cfg := defaultRedisConfig()
	for _, opt := range []RedisOption{
		WithRedisAddr(""),
		WithRedisAuth("pw", 3),
		WithRedisPool(0, 4, time.Second),
		WithRedisPrefix("sf"),
	} {
		opt(&cfg)
	}
	o := cfg.Options()

	assert.Equal(t, "localhost:6379", o.Addr, "empty addr keeps default")
	assert.Equal(t, "pw", o.Password)
	assert.Equal(t, 3, o.DB)
	assert.Equal(t, 10, o.PoolSize)
	assert.Equal(t, 4, o.MinIdleConns)
	assert.Equal(t, time.Second, o.DialTimeout)
	assert.Equal(t, "sf", cfg.Prefix)
}

func TestRedisCacheKeysArePrefixed(t *testing.T) {
	rc := NewRedisCache(WithRedisPrefix("sf"))
	defer rc.Close()

	assert.Equal(t, "sf", rc.Prefix())
	assert.Equal(t, "sf:config:rsi:_global", rc.Key(JoinKey("config", "rsi", "_global")))
	assert.Equal(t, []string{"sf:a", "sf:b"}, rc.wrapKeys("a", "b"))
}

func TestRedisCachePingUnreachable(t *testing.T) {
	rc := NewRedisCache(WithRedisAddr("127.0.0.1:1"), WithRedisPool(1, 1, 200*time.Millisecond))
	defer rc.Close()

	err := rc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
