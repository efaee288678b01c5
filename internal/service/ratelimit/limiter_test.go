package ratelimit

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLimiterRefill(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(2, 1, WithClock(c.now))

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("expected burst of 2 to pass")
	}
	if l.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share buckets")
	}

	c.t = c.t.Add(time.Second)
	if !l.Allow("a") {
		t.Fatalf("expected one token after 1s")
	}
	if l.Allow("a") {
		t.Fatalf("only one token should have refilled")
	}
}

func TestLimiterPrune(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(4, 2, WithClock(c.now))
	l.Allow("a")
	c.t = c.t.Add(time.Second)
	l.Allow("b")

	c.t = c.t.Add(time.Second)
	if n := l.Prune(); n != 1 {
		t.Fatalf("pruned %d buckets, want 1", n)
	}
	if n := l.Prune(); n != 0 {
		t.Fatalf("pruned %d buckets on second pass, want 0", n)
	}
}
