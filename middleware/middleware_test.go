package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/store/memstore"
)

func newEngine(t *testing.T, mutate func(*gatekeeper.Config)) *gatekeeper.Engine {
	t.Helper()
	cfg := gatekeeper.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.BcryptCost = 4
	cfg.Account.SendWelcomeMail = false
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := gatekeeper.New().WithConfig(cfg).WithStore(memstore.New()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func loginToken(t *testing.T, engine *gatekeeper.Engine) string {
	t.Helper()
	ctx := context.Background()
	if _, err := engine.Register(ctx, gatekeeper.RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct-horse-battery",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	res, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res.AccessToken
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestGuard(t *testing.T) {
	engine := newEngine(t, nil)
	token := loginToken(t, engine)

	var seen *gatekeeper.AuthResult
	h := Guard(engine, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AuthResultFromContext(r.Context())
		raw, _ := AccessTokenFromContext(r.Context())
		if raw != token {
			t.Fatalf("raw token not stored in context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "malformed", header: "Bearer not-a-jwt", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, want: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer " + token, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
	if seen == nil || seen.Email != "alice@example.com" {
		t.Fatalf("auth result not propagated: %+v", seen)
	}
}

func TestGuardNilEngine(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	Guard(nil, nil)(okHandler).ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGuardCustomErrorHandler(t *testing.T) {
	engine := newEngine(t, nil)
	var got error
	h := Guard(engine, func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(StatusFor(err))
	})(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(got, gatekeeper.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", got)
	}
}

func TestRequireRole(t *testing.T) {
	engine := newEngine(t, nil)
	token := loginToken(t, engine)

	run := func(roles ...string) int {
		h := Guard(engine, nil)(RequireRole(nil, roles...)(okHandler))
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := run("admin"); code != http.StatusForbidden {
		t.Fatalf("member on admin route: status = %d, want 403", code)
	}
	if code := run("admin", "member"); code != http.StatusNoContent {
		t.Fatalf("member on member route: status = %d, want 204", code)
	}

	rec := httptest.NewRecorder()
	RequireRole(nil, "admin")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: status = %d, want 401", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	engine := newEngine(t, func(cfg *gatekeeper.Config) {
		cfg.RateLimit.Routes[gatekeeper.RouteLogin] = gatekeeper.RatePolicy{Limit: 2, Window: time.Minute}
	})
	h := ClientMetadata(false)(RateLimit(engine, gatekeeper.RouteLogin, nil, nil)(okHandler))

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("10.0.0.1:5000"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	rec := do("10.0.0.1:5001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", rec.Code)
	}
	if ra := rec.Header().Get("Retry-After"); ra == "" || ra == "0" {
		t.Fatalf("Retry-After = %q", ra)
	}
	if rec := do("10.0.0.2:5000"); rec.Code != http.StatusNoContent {
		t.Fatalf("other client: status = %d", rec.Code)
	}
}

func TestRateLimitByAccount(t *testing.T) {
	engine := newEngine(t, func(cfg *gatekeeper.Config) {
		cfg.RateLimit.Routes[gatekeeper.RoutePasswordChange] = gatekeeper.RatePolicy{Limit: 1, Window: time.Minute}
	})
	token := loginToken(t, engine)
	h := Guard(engine, nil)(RateLimit(engine, gatekeeper.RoutePasswordChange, IdentityByAccount, nil)(okHandler))

	codes := make([]int, 0, 2)
	for _, remote := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/password/change", nil)
		req.RemoteAddr = remote
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [204 429]", codes)
	}
}

func TestWAF(t *testing.T) {
	engine := newEngine(t, nil)
	h := WAF(engine, 0, nil)(okHandler)

	cases := []struct {
		name        string
		target      string
		contentType string
		body        string
		want        int
	}{
		{name: "clean json", target: "/x", contentType: "application/json", body: `{"name":"Alice"}`, want: http.StatusNoContent},
		{name: "script in json", target: "/x", contentType: "application/json", body: `{"bio":["<script>alert(1)</script>"]}`, want: http.StatusBadRequest},
		{name: "malformed json", target: "/x", contentType: "application/json", body: `{"name":`, want: http.StatusBadRequest},
		{name: "traversal in query", target: "/x?path=" + url.QueryEscape("../../etc/passwd"), want: http.StatusBadRequest},
		{name: "sql in form", target: "/x", contentType: "application/x-www-form-urlencoded", body: "q=" + url.QueryEscape("1 UNION SELECT password FROM users"), want: http.StatusBadRequest},
		{name: "clean form", target: "/x", contentType: "application/x-www-form-urlencoded", body: "q=hello", want: http.StatusNoContent},
		{name: "json labelled text", target: "/x", contentType: "text/plain", body: `{"name":"<script>alert(1)</script>"}`, want: http.StatusBadRequest},
		{name: "json without content type", target: "/x", body: `{"name":"<img src=x onerror=alert(1)>"}`, want: http.StatusBadRequest},
		{name: "raw text", target: "/x", contentType: "text/plain", body: "<script>alert(1)</script>", want: http.StatusBadRequest},
		{name: "clean text", target: "/x", contentType: "text/plain", body: "hello there", want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.target, strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if strings.Contains(rec.Body.String(), "script") || strings.Contains(rec.Body.String(), "UNION") {
				t.Fatalf("rejection names the pattern: %q", rec.Body.String())
			}
		})
	}

	if got := engine.MetricsSnapshot().Counters[gatekeeper.MetricSuspiciousPayload]; got != 6 {
		t.Fatalf("suspicious counter = %d, want 6", got)
	}
}

func TestWAFReplaysJSONBody(t *testing.T) {
	engine := newEngine(t, nil)
	var got string
	h := WAF(engine, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		got = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"Alice"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != `{"name":"Alice"}` {
		t.Fatalf("handler saw %q", got)
	}
}

func TestWAFBodyLimit(t *testing.T) {
	engine := newEngine(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"`+strings.Repeat("a", 100)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	WAF(engine, 16, nil)(okHandler).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClientMetadata(t *testing.T) {
	cases := []struct {
		name    string
		trust   bool
		headers map[string]string
		want    string
	}{
		{name: "remote addr", want: "192.0.2.10"},
		{name: "untrusted forwarded header", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, want: "192.0.2.10"},
		{name: "trusted forwarded header", trust: true, headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, want: "203.0.113.5"},
		{name: "trusted real ip", trust: true, headers: map[string]string{"X-Real-IP": "198.51.100.7"}, want: "198.51.100.7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ip string
			h := ClientMetadata(tc.trust)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ip = gatekeeper.ClientIPFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.10:4321"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if ip != tc.want {
				t.Fatalf("ip = %q, want %q", ip, tc.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		gatekeeper.ErrTokenExpired:                http.StatusUnauthorized,
		gatekeeper.ErrAccountSuspended:            http.StatusForbidden,
		gatekeeper.ErrForbidden:                   http.StatusForbidden,
		&gatekeeper.RateLimitError{RetryAfter: 1}: http.StatusTooManyRequests,
		gatekeeper.ErrSuspiciousPayload:           http.StatusBadRequest,
		errors.New("boom"):                        http.StatusInternalServerError,
		gatekeeper.ErrServiceUnavailable:          http.StatusServiceUnavailable,
	}
	for err, want := range cases {
		if got := StatusFor(err); got != want {
			t.Fatalf("StatusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
