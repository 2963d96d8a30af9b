package federation

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrRejected covers bad signatures, wrong audience or issuer, and malformed tokens.
	ErrRejected = errors.New("external identity token rejected")
	// ErrEmailUnverified is returned when the provider has not verified the email.
	ErrEmailUnverified = errors.New("external identity email not verified")
	// ErrUnavailable is returned when the key set cannot be fetched.
	ErrUnavailable = errors.New("external identity provider unavailable")
)

// Config describes one trusted provider.
type Config struct {
	// Issuers lists accepted iss values (providers sometimes emit both a bare host
	// and an https URL).
	Issuers  []string
	Audience string
	JWKSURL  string

	HTTPClient         *http.Client
	CacheTTL           time.Duration
	MinRefreshInterval time.Duration
	Leeway             time.Duration
	Now                func() time.Time
}

// Identity is the verified subset of ID token claims.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// Verifier validates RS256 ID tokens against a cached JWKS.
type Verifier struct {
	cfg Config

	mu          sync.Mutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastAttempt time.Time
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// NewVerifier validates cfg and applies defaults.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Issuers) == 0 || strings.TrimSpace(cfg.Audience) == "" || strings.TrimSpace(cfg.JWKSURL) == "" {
		return nil, errors.New("federation: issuers, audience and jwks url are required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = time.Minute
	}
	if cfg.Leeway <= 0 {
		cfg.Leeway = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks signature, audience, issuer and expiry, then requires a verified
// email.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	kid, err := headerKid(rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	keys, err := v.keySet(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(
		rawIDToken,
		claims,
		func(token *jwt.Token) (any, error) {
			if kid != "" {
				key, ok := keys[kid]
				if !ok {
					return nil, fmt.Errorf("unknown key id: %s", kid)
				}
				return key, nil
			}
			if len(keys) == 1 {
				for _, key := range keys {
					return key, nil
				}
			}
			return nil, errors.New("missing key id")
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.cfg.Leeway),
		jwt.WithTimeFunc(v.cfg.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if !parsed.Valid {
		return nil, ErrRejected
	}

	iss, _ := claims.GetIssuer()
	if !slices.Contains(v.cfg.Issuers, iss) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrRejected, iss)
	}

	subject := strings.TrimSpace(stringClaim(claims, "sub"))
	if subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrRejected)
	}

	id := &Identity{
		Subject:       subject,
		Email:         strings.ToLower(strings.TrimSpace(stringClaim(claims, "email"))),
		EmailVerified: boolClaim(claims["email_verified"]),
		Name:          strings.TrimSpace(stringClaim(claims, "name")),
	}
	if id.Email == "" || !id.EmailVerified {
		return nil, ErrEmailUnverified
	}
	return id, nil
}

func headerKid(raw string) (string, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return "", errors.New("token is not a compact JWS")
	}
	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errors.New("invalid header encoding")
	}
	var header struct {
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return "", errors.New("invalid header")
	}
	return strings.TrimSpace(header.Kid), nil
}

func (v *Verifier) keySet(ctx context.Context, kid string) (map[string]*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.cfg.Now()
	fresh := v.keys != nil && now.Sub(v.fetchedAt) < v.cfg.CacheTTL
	_, known := v.keys[kid]
	if fresh && (kid == "" || known) {
		return v.keys, nil
	}
	if v.keys != nil && now.Sub(v.lastAttempt) < v.cfg.MinRefreshInterval {
		return v.keys, nil
	}

	v.lastAttempt = now
	keys, err := v.fetchJWKS(ctx)
	if err != nil {
		if v.keys != nil {
			return v.keys, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	v.keys = keys
	v.fetchedAt = now
	return keys, nil
}

func (v *Verifier) fetchJWKS(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("jwks fetch failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc jwksDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey)
	for i, key := range doc.Keys {
		if strings.ToUpper(strings.TrimSpace(key.Kty)) != "RSA" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(key.N))
		if err != nil {
			return nil, fmt.Errorf("decode jwks n: %w", err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(key.E))
		if err != nil {
			return nil, fmt.Errorf("decode jwks e: %w", err)
		}
		eBig := new(big.Int).SetBytes(eBytes)
		if !eBig.IsInt64() || eBig.Int64() <= 1 {
			return nil, fmt.Errorf("invalid jwks exponent for key %s", key.Kid)
		}

		kid := strings.TrimSpace(key.Kid)
		if kid == "" {
			kid = fmt.Sprintf("key-%d", i)
		}
		keys[kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(eBig.Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no RSA keys found in jwks")
	}
	return keys, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func boolClaim(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}
