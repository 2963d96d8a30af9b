package federation

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://accounts.example.com"
	testAudience = "client-123"
)

type provider struct {
	key     *rsa.PrivateKey
	kid     atomic.Value
	fetches atomic.Int32
	srv     *httptest.Server
}

func newProvider(t *testing.T, kid string) *provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	p := &provider{key: key}
	p.kid.Store(kid)
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.fetches.Add(1)
		doc := jwksDocument{Keys: []jwk{{
			Kty: "RSA",
			Kid: p.kid.Load().(string),
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(p.key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(p.key.E)).Bytes()),
		}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *provider) sign(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(p.key)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return s
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            testAudience,
		"sub":            "ext-42",
		"email":          "Alice@Example.com",
		"email_verified": true,
		"name":           "Alice",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func newTestVerifier(t *testing.T, p *provider) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{
		Issuers:  []string{testIssuer, "accounts.example.com"},
		Audience: testAudience,
		JWKSURL:  p.srv.URL,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestVerifyValidToken(t *testing.T) {
	p := newProvider(t, "k1")
	v := newTestVerifier(t, p)

	id, err := v.Verify(context.Background(), p.sign(t, "k1", baseClaims()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Subject != "ext-42" || id.Email != "alice@example.com" || !id.EmailVerified || id.Name != "Alice" {
		t.Fatalf("unexpected identity %+v", id)
	}

	if _, err := v.Verify(context.Background(), p.sign(t, "k1", baseClaims())); err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if got := p.fetches.Load(); got != 1 {
		t.Fatalf("expected cached jwks, fetched %d times", got)
	}
}

func TestVerifyRejectsWrongAudienceAndIssuer(t *testing.T) {
	p := newProvider(t, "k1")
	v := newTestVerifier(t, p)

	claims := baseClaims()
	claims["aud"] = "someone-else"
	if _, err := v.Verify(context.Background(), p.sign(t, "k1", claims)); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected for audience, got %v", err)
	}

	claims = baseClaims()
	claims["iss"] = "https://evil.example.com"
	if _, err := v.Verify(context.Background(), p.sign(t, "k1", claims)); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected for issuer, got %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	p := newProvider(t, "k1")
	other := newProvider(t, "k1")
	v := newTestVerifier(t, p)

	if _, err := v.Verify(context.Background(), other.sign(t, "k1", baseClaims())); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if _, err := v.Verify(context.Background(), "not-a-token"); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected for garbage, got %v", err)
	}
}

func TestVerifyUnverifiedEmail(t *testing.T) {
	p := newProvider(t, "k1")
	v := newTestVerifier(t, p)

	claims := baseClaims()
	claims["email_verified"] = "false"
	if _, err := v.Verify(context.Background(), p.sign(t, "k1", claims)); !errors.Is(err, ErrEmailUnverified) {
		t.Fatalf("expected ErrEmailUnverified, got %v", err)
	}

	claims = baseClaims()
	claims["email_verified"] = "true"
	if _, err := v.Verify(context.Background(), p.sign(t, "k1", claims)); err != nil {
		t.Fatalf("string true should be accepted: %v", err)
	}
}

func TestVerifyRefetchesOnUnknownKid(t *testing.T) {
	p := newProvider(t, "k1")
	now := time.Now()
	v, err := NewVerifier(Config{
		Issuers:  []string{testIssuer},
		Audience: testAudience,
		JWKSURL:  p.srv.URL,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := v.Verify(context.Background(), p.sign(t, "k1", baseClaims())); err != nil {
		t.Fatalf("verify: %v", err)
	}

	p.kid.Store("k2")
	if _, err := v.Verify(context.Background(), p.sign(t, "k2", baseClaims())); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection inside refresh interval, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := v.Verify(context.Background(), p.sign(t, "k2", baseClaims())); err != nil {
		t.Fatalf("expected rotated key to verify after refetch: %v", err)
	}
	if got := p.fetches.Load(); got != 2 {
		t.Fatalf("expected 2 jwks fetches, got %d", got)
	}
}

func TestVerifyProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	v, err := NewVerifier(Config{Issuers: []string{testIssuer}, Audience: testAudience, JWKSURL: srv.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	p := newProvider(t, "k1")
	if _, err := v.Verify(context.Background(), p.sign(t, "k1", baseClaims())); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
