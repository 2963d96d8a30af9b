package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterRejectsNPlusOne(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	l := New(NewMemoryStore(clock), clock)
	ctx := context.Background()
	p := Policy{Limit: 5, Window: time.Minute}
	key := Key("1.2.3.4", "login")

	for i := 1; i <= 5; i++ {
		d, err := l.Allow(ctx, key, p)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !d.Allowed || d.Remaining != 5-i {
			t.Fatalf("hit %d: unexpected decision %+v", i, d)
		}
	}

	now = now.Add(20 * time.Second)
	d, err := l.Check(ctx, key, p)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on hit 6, got %v", err)
	}
	if d.RetryAfter != 40*time.Second {
		t.Fatalf("expected 40s retry-after, got %v", d.RetryAfter)
	}

	other, err := l.Allow(ctx, Key("5.6.7.8", "login"), p)
	if err != nil || !other.Allowed {
		t.Fatalf("other identity must have its own budget: %+v %v", other, err)
	}

	now = now.Add(40 * time.Second)
	d, err = l.Allow(ctx, key, p)
	if err != nil || !d.Allowed || d.Remaining != 4 {
		t.Fatalf("expected fresh window after reset, got %+v %v", d, err)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	now := time.Now()
	s := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	_, _, _ = s.Hit(ctx, "a", time.Second)
	_, _, _ = s.Hit(ctx, "b", time.Minute)
	now = now.Add(2 * time.Second)

	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("expected one closed window swept, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one live window, got %d", s.Len())
	}
}

func TestZeroPolicyAlwaysAllows(t *testing.T) {
	l := New(NewMemoryStore(nil), nil)
	for i := 0; i < 100; i++ {
		d, err := l.Allow(context.Background(), "k", Policy{})
		if err != nil || !d.Allowed {
			t.Fatalf("expected allow, got %+v %v", d, err)
		}
	}
}

func TestRedisStoreFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := New(NewRedisStore(client, ""), nil)
	ctx := context.Background()
	p := Policy{Limit: 3, Window: 10 * time.Second}

	for i := 0; i < 3; i++ {
		if _, err := l.Check(ctx, "u1|refresh", p); err != nil {
			t.Fatalf("hit %d: %v", i+1, err)
		}
	}
	d, err := l.Check(ctx, "u1|refresh", p)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if d.RetryAfter <= 0 || d.RetryAfter > p.Window {
		t.Fatalf("unexpected retry-after %v", d.RetryAfter)
	}
	if ttl := mr.TTL("rl:u1|refresh"); ttl <= 0 {
		t.Fatalf("expected key TTL, got %v", ttl)
	}

	mr.FastForward(11 * time.Second)
	if _, err := l.Check(ctx, "u1|refresh", p); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := New(NewRedisStore(client, ""), nil).Allow(context.Background(), "k", Policy{Limit: 1, Window: time.Second})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
