package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCacheExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryClock(clock.Now))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", 42, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got int
	if err := mc.Get(ctx, "k", &got); err != nil || got != 42 {
		t.Fatalf("expected 42, got %d (%v)", got, err)
	}

	clock.Advance(59 * time.Second)
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("expected hit before expiry: %v", err)
	}

	clock.Advance(time.Second)
	if err := mc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss at expiry, got %v", err)
	}
}

func TestMemoryCacheTypeMismatch(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "text", time.Minute)
	var n int
	if err := mc.Get(ctx, "k", &n); err == nil {
		t.Fatalf("expected assignment error")
	}
	var s string
	if err := mc.Get(ctx, "k", &s); err != nil || s != "text" {
		t.Fatalf("unexpected %q (%v)", s, err)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "strategy:a:_global", 1, time.Minute)
	_ = mc.Set(ctx, "strategy:a:BTCUSDT", 2, time.Minute)
	_ = mc.Set(ctx, "other", 3, time.Minute)

	if err := mc.DeleteByPattern(ctx, "strategy:*"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mc.Exists(ctx, "strategy:a:_global", "strategy:a:BTCUSDT"); ok {
		t.Fatalf("expected strategy keys removed")
	}
	if ok, _ := mc.Exists(ctx, "other"); !ok {
		t.Fatalf("expected unrelated key kept")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(clock.Now))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, time.Hour)
	clock.Advance(time.Second)
	_ = mc.Set(ctx, "b", 2, time.Hour)
	clock.Advance(time.Second)
	var v int
	_ = mc.Get(ctx, "a", &v)
	clock.Advance(time.Second)
	_ = mc.Set(ctx, "c", 3, time.Hour)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b evicted")
	}
	if mc.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", mc.Len())
	}
}

func TestJoinKey(t *testing.T) {
	if got := JoinKey("strategy", "macd_momentum", "_global"); got != "strategy:macd_momentum:_global" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := JoinKey("n", 3, true); got != "n:3:true" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := PrefixPattern("strategy:"); got != "strategy:*" {
		t.Fatalf("unexpected pattern %q", got)
	}
}
