package gatekeeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCheckRateLimitMemory(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := env.engine.CheckRateLimit(ctx, "203.0.113.7", RouteLogin); err != nil {
			t.Fatalf("request %d: unexpected %v", i+1, err)
		}
	}

	err := env.engine.CheckRateLimit(ctx, "203.0.113.7", RouteLogin)
	var rl *RateLimitError
	if !errors.As(err, &rl) || !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected *RateLimitError, got %v", err)
	}
	if rl.Route != RouteLogin || rl.RetryAfter != 15*time.Minute {
		t.Fatalf("unexpected rate limit error %+v", rl)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricRateLimitHit]; got != 1 {
		t.Fatalf("rate limit hits = %d, want 1", got)
	}

	// Other identities and routes have their own windows.
	if err := env.engine.CheckRateLimit(ctx, "198.51.100.1", RouteLogin); err != nil {
		t.Fatalf("other identity: %v", err)
	}
	if err := env.engine.CheckRateLimit(ctx, "203.0.113.7", RouteRefresh); err != nil {
		t.Fatalf("other route: %v", err)
	}

	env.clock.Advance(15 * time.Minute)
	if err := env.engine.CheckRateLimit(ctx, "203.0.113.7", RouteLogin); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestCheckRateLimitDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.RateLimit.Enabled = false
	})
	for i := 0; i < 50; i++ {
		if err := env.engine.CheckRateLimit(context.Background(), "ip", RouteRegister); err != nil {
			t.Fatalf("disabled limiter rejected request %d: %v", i, err)
		}
	}
}

func TestCheckRateLimitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, nil, func(b *Builder) {
		b.WithRedis(rdb).WithClock(time.Now)
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := env.engine.CheckRateLimit(ctx, "alice@example.com", RoutePasswordForgot); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	err := env.engine.CheckRateLimit(ctx, "alice@example.com", RoutePasswordForgot)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected *RateLimitError, got %v", err)
	}
	if rl.RetryAfter <= 0 || rl.RetryAfter > time.Hour {
		t.Fatalf("unexpected retry after %v", rl.RetryAfter)
	}

	mr.FastForward(time.Hour)
	if err := env.engine.CheckRateLimit(ctx, "alice@example.com", RoutePasswordForgot); err != nil {
		t.Fatalf("expected window reset after expiry, got %v", err)
	}
}

func TestCheckRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, nil, func(b *Builder) { b.WithRedis(rdb) })
	mr.Close()

	if err := env.engine.CheckRateLimit(context.Background(), "ip", RouteLogin); err != nil {
		t.Fatalf("store failure must allow the request, got %v", err)
	}
}

func TestAuthenticateFallsBackToStoreWhenCacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, nil, func(b *Builder) { b.WithRedis(rdb) })
	env.register(t, "Alice", "alice@example.com")
	res := env.login(t, "alice@example.com")

	if err := env.engine.Logout(context.Background(), res.AccessToken, ""); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	mr.Close()

	// The cache is down but the store still knows about the revocation.
	if _, err := env.engine.Authenticate(context.Background(), res.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked with cache down, got %v", err)
	}
}

func TestScanPayload(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	clean := map[string]any{"name": "Alice", "tags": []any{"a", "b"}}
	if err := env.engine.ScanPayload(ctx, clean); err != nil {
		t.Fatalf("clean payload rejected: %v", err)
	}

	dirty := map[string]any{"profile": map[string]any{"bio": "<script>alert(1)</script>"}}
	if err := env.engine.ScanPayload(ctx, dirty); !errors.Is(err, ErrSuspiciousPayload) {
		t.Fatalf("expected ErrSuspiciousPayload, got %v", err)
	}

	if err := env.engine.ScanJSON(ctx, []byte(`{"q":"1' OR '1'='1"}`)); !errors.Is(err, ErrSuspiciousPayload) {
		t.Fatalf("expected ErrSuspiciousPayload, got %v", err)
	}
	if err := env.engine.ScanJSON(ctx, []byte(`{"q":`)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for malformed JSON, got %v", err)
	}
	if err := env.engine.ScanJSON(ctx, nil); err != nil {
		t.Fatalf("empty body: %v", err)
	}

	if got := env.engine.MetricsSnapshot().Counters[MetricSuspiciousPayload]; got != 2 {
		t.Fatalf("expected 2 suspicious payloads counted, got %d", got)
	}
}

func TestSweep(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.register(t, "Alice", "alice@example.com")
	res := env.login(t, "alice@example.com")

	if err := env.engine.Logout(ctx, res.AccessToken, ""); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.engine.GrantDownload(ctx, "a.txt", "txt", time.Minute); err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}
	if err := env.engine.CheckRateLimit(ctx, "ip", RouteLogin); err != nil {
		t.Fatalf("CheckRateLimit: %v", err)
	}

	result, err := env.engine.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result != (SweepResult{}) {
		t.Fatalf("nothing has expired yet, got %+v", result)
	}

	env.clock.Advance(8 * 24 * time.Hour)
	result, err = env.engine.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.BlacklistRows != 1 || result.SignedURLs != 1 || result.RateLimitWindows != 1 {
		t.Fatalf("unexpected sweep result %+v", result)
	}

	again, err := env.engine.Sweep(ctx)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if again != (SweepResult{}) {
		t.Fatalf("sweep must be idempotent, got %+v", again)
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.engine.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not stop")
	}
	if env.engine.MetricsSnapshot().Counters[MetricSweepRun] == 0 {
		t.Fatal("expected at least one sweep")
	}
}
