package gatekeeper

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func withAudit(buffer int, dropIfFull bool) func(*Config) {
	return func(c *Config) {
		c.Audit.Enabled = true
		c.Audit.BufferSize = buffer
		c.Audit.DropIfFull = dropIfFull
	}
}

func collectEvents(t *testing.T, sink *ChannelSink, want int) []AuditEvent {
	t.Helper()
	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("expected %d audit events, got %d", want, len(events))
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	env := newTestEnv(t, nil, func(b *Builder) { b.WithAuditSink(sink) })
	env.register(t, "Alice", "alice@example.com")

	_, _ = env.engine.Login(WithClientIP(context.Background(), "203.0.113.1"), "alice@example.com", "wrong-password-1")
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEventsCarryFields(t *testing.T) {
	sink := NewChannelSink(16)
	env := newTestEnv(t, withAudit(16, false), func(b *Builder) { b.WithAuditSink(sink) })
	account := env.register(t, "Alice", "alice@example.com")
	collectEvents(t, sink, 1)

	ctx := WithClientIP(context.Background(), "203.0.113.1")
	if _, err := env.engine.Login(ctx, "alice@example.com", "wrong-password-1"); err == nil {
		t.Fatal("expected login failure")
	}
	res, err := env.engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	events := collectEvents(t, sink, 2)
	failure, success := events[0], events[1]

	if failure.EventType != auditEventLoginFailure || failure.Success || failure.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("unexpected failure event %+v", failure)
	}
	if failure.AccountID != account.ID || failure.IP != "203.0.113.1" {
		t.Fatalf("failure event missing identity %+v", failure)
	}
	if success.EventType != auditEventLoginSuccess || !success.Success || success.Error != "" {
		t.Fatalf("unexpected success event %+v", success)
	}
	if success.SessionID != res.SessionID || !success.Timestamp.Equal(env.clock.Now()) {
		t.Fatalf("unexpected success event %+v", success)
	}
}

func TestAuditReuseDetectionMetadata(t *testing.T) {
	sink := NewChannelSink(16)
	env := newTestEnv(t, withAudit(16, false), func(b *Builder) { b.WithAuditSink(sink) })
	env.register(t, "Alice", "alice@example.com")
	res := env.login(t, "alice@example.com")
	collectEvents(t, sink, 2)

	ctx := context.Background()
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	_, _ = env.engine.Refresh(ctx, res.RefreshToken)

	events := collectEvents(t, sink, 3)
	reuse := events[1]
	if reuse.EventType != auditEventRefreshReuseDetected {
		t.Fatalf("expected reuse event, got %+v", reuse)
	}
	if reuse.Metadata["chain_id"] == "" || reuse.Metadata["chain_revoked"] != "0" {
		t.Fatalf("unexpected reuse metadata %+v", reuse.Metadata)
	}
}

func TestAuditBufferFullDropIfFullDoesNotBlock(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	env := newTestEnv(t, withAudit(1, true), func(b *Builder) { b.WithAuditSink(sink) })
	defer close(sink.gate)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			_ = env.engine.CheckRateLimit(context.Background(), "ip", RouteRegister)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit backpressure blocked the caller")
	}
	if env.engine.AuditDropped() == 0 {
		t.Fatal("expected dropped audit events")
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	var buf syncBuffer
	env := newTestEnv(t, withAudit(64, false), func(b *Builder) {
		b.WithAuditSink(NewJSONWriterSink(&buf))
	})
	account := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	res := env.login(t, "alice@example.com")
	pair, err := env.engine.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	_, _ = env.engine.Refresh(ctx, res.RefreshToken)
	if err := env.engine.Logout(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := env.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	resetToken := extract(t, tokenPattern, env.mail.next(t).Body)
	env.engine.Close()

	stored, _ := env.store.AccountByID(ctx, account.ID)
	needles := []string{
		testPassword,
		res.AccessToken,
		res.RefreshToken,
		pair.AccessToken,
		pair.RefreshToken,
		resetToken,
		stored.PasswordHash,
	}
	if !buf.Contains(auditEventLogout) {
		t.Fatal("expected logout event in audit log")
	}
	for _, needle := range needles {
		if buf.Contains(needle) {
			t.Fatalf("sensitive value leaked into audit log: %q", needle)
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), v)
}
