package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret (default).
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// Token types carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrWrongTokenType is returned when a refresh token is presented as access or the reverse.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrMissingSubject is returned for tokens without a sub claim.
	ErrMissingSubject = errors.New("token missing subject")
	// ErrUnknownKey is returned when the kid header names no configured key.
	ErrUnknownKey = errors.New("unknown signing key")
	// ErrNoSigningKey is returned by Create* on a verify-only Manager.
	ErrNoSigningKey = errors.New("no signing key configured")
	// ErrIssuedInFuture is returned when iat is beyond MaxFutureIAT.
	ErrIssuedInFuture = errors.New("token issued in the future")
)

// Config holds signing and validation settings shared by access and refresh tokens.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	// Now overrides the clock for issuance and validation. Defaults to time.Now.
	Now func() time.Time
}

// Manager issues and verifies gatekeeper tokens.
type Manager struct {
	config Config
	keys   *keyring
}

// Claims is the payload of both token types. Subject is the account id and ID
// (jti) is unique per token; for refresh tokens it is the stored row id.
type Claims struct {
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sid,omitempty"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

// AccountID returns the sub claim.
func (c *Claims) AccountID() string {
	return c.Subject
}

// Expiry returns the exp claim, or the zero time if absent.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// NewManager validates cfg and resolves its keys once.
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, errors.New("invalid TTL configuration")
	case cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute:
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	keys, err := newKeyring(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{config: cfg, keys: keys}, nil
}

// AccessTTL returns the configured access token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// CreateAccess signs an access token for accountID. sessionID may be empty.
func (j *Manager) CreateAccess(accountID, role, sessionID string) (string, time.Time, error) {
	return j.create(Claims{
		Role:      role,
		SessionID: sessionID,
		Type:      TypeAccess,
	}, accountID, uuid.NewString(), j.config.AccessTTL)
}

// CreateRefresh signs a refresh token whose jti is tokenID. sessionID is carried
// so access tokens minted on refresh stay bound to the same session.
func (j *Manager) CreateRefresh(accountID, tokenID, sessionID string) (string, time.Time, error) {
	if tokenID == "" {
		return "", time.Time{}, errors.New("refresh token id required")
	}
	return j.create(Claims{Type: TypeRefresh, SessionID: sessionID}, accountID, tokenID, j.config.RefreshTTL)
}

func (j *Manager) create(claims Claims, subject, id string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	now := j.config.Now()
	expiresAt := now.Add(ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ID:        id,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    j.config.Issuer,
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	if j.keys.sign == nil {
		return "", time.Time{}, ErrNoSigningKey
	}
	token := jwt.NewWithClaims(j.keys.method, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signed, err := token.SignedString(j.keys.sign)
	if err != nil {
		return "", time.Time{}, err
	}
	// exp is serialized with second precision.
	return signed, claims.ExpiresAt.Time, nil
}

// ParseAccess verifies signature, registered claims and typ=access.
func (j *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, TypeAccess)
}

// ParseRefresh verifies signature, registered claims and typ=refresh.
func (j *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, TypeRefresh)
}

// ParseUnverified decodes claims without checking the signature or expiry. It is
// only used on tokens the caller has already authenticated.
func (j *Manager) ParseUnverified(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (j *Manager) parse(tokenStr, wantType string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.keys.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return j.keys.verifyKey(kid)
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != wantType {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if claims.IssuedAt != nil && j.config.MaxFutureIAT > 0 {
		maxAllowed := j.config.Now().Add(j.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, ErrIssuedInFuture
		}
	}

	return claims, nil
}

// IsExpired reports whether err came from an exp check.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
