package gatekeeper

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/MrEthical07/gatekeeper/password"
)

// Config holds every engine setting. Obtain one with DefaultConfig, adjust the
// fields you need and pass it to Builder.WithConfig.
type Config struct {
	JWT               JWTConfig
	Refresh           RefreshConfig
	Password          PasswordConfig
	Session           SessionConfig
	Blacklist         BlacklistConfig
	SignedURL         SignedURLConfig
	EmailVerification EmailVerificationConfig
	PasswordReset     PasswordResetConfig
	Account           AccountConfig
	RateLimit         RateLimitConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
	Sweep             SweepConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// JWTConfig configures access and refresh token signing.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte // HS256 secret (>= 32 bytes) or Ed25519 private key
	PublicKey     []byte // Ed25519 public key
	KeyID         string
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// RefreshConfig configures the refresh token store and rotator.
type RefreshConfig struct {
	TTL time.Duration
	// RevokeChainOnReuse revokes every token descended from the same login when
	// an already-rotated token is presented again, including the chain's live token.
	RevokeChainOnReuse bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm, its cost and the length policy.
type PasswordConfig struct {
	Algorithm  password.Algorithm // bcrypt (default) or argon2id
	BcryptCost int

	Memory      uint32 // argon2id, in KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength int
	MaxLength int
	// Workers bounds concurrent hash and verify operations. Zero means NumCPU.
	Workers        int
	UpgradeOnLogin bool
}

/*
====================================
SESSION AND REVOCATION CONFIG
====================================
*/

// SessionConfig configures the session registry.
type SessionConfig struct {
	// TouchTimeout bounds the asynchronous last-activity update done by Authenticate.
	TouchTimeout time.Duration
}

// BlacklistConfig configures the revocation ledger cache.
type BlacklistConfig struct {
	CacheTTL    time.Duration
	RedisPrefix string
}

// SignedURLConfig configures download links.
type SignedURLConfig struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

/*
====================================
VERIFICATION AND RESET CONFIG
====================================
*/

// EmailVerificationConfig configures the verification OTP.
type EmailVerificationConfig struct {
	CodeTTL        time.Duration
	OTPDigits      int
	SendOnRegister bool
}

// PasswordResetConfig configures reset tokens. LinkBase is prefixed to the raw
// token in the reset email, for example "https://app.example.com/reset?token=".
type PasswordResetConfig struct {
	TokenTTL time.Duration
	LinkBase string
}

// AccountConfig configures registration.
type AccountConfig struct {
	DefaultRole     string
	SendWelcomeMail bool
}

/*
====================================
ABUSE MITIGATION CONFIG
====================================
*/

// Route names used as rate-limit keys.
const (
	RouteRegister          = "register"
	RouteLogin             = "login"
	RouteExternalLogin     = "external_login"
	RouteRefresh           = "refresh"
	RoutePasswordForgot    = "password_forgot"
	RoutePasswordReset     = "password_reset"
	RoutePasswordChange    = "password_change"
	RouteEmailVerification = "email_verification"
	RouteDownload          = "download"
	RouteDefault           = "default"
)

// RatePolicy allows Limit requests per Window. A zero Limit disables the check.
type RatePolicy struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfig maps route names to policies. Routes without an entry use Default.
type RateLimitConfig struct {
	Enabled     bool
	Default     RatePolicy
	Routes      map[string]RatePolicy
	RedisPrefix string
}

// Policy resolves the policy for route.
func (c RateLimitConfig) Policy(route string) RatePolicy {
	if p, ok := c.Routes[route]; ok {
		return p
	}
	return c.Default
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig configures the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SweepConfig configures RunSweeper.
type SweepConfig struct {
	Interval time.Duration
}

// DefaultConfig returns the production defaults. JWT.PrivateKey must still be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	argon := password.DefaultArgon2Config()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "gatekeeper",
			Leeway:        30 * time.Second,
		},
		Refresh: RefreshConfig{
			TTL:                30 * 24 * time.Hour,
			RevokeChainOnReuse: false,
		},
		Password: PasswordConfig{
			Algorithm:      password.AlgorithmBcrypt,
			BcryptCost:     password.DefaultBcryptCost,
			Memory:         argon.Memory,
			Time:           argon.Time,
			Parallelism:    argon.Parallelism,
			SaltLength:     argon.SaltLength,
			KeyLength:      argon.KeyLength,
			MinLength:      10,
			MaxLength:      72,
			UpgradeOnLogin: true,
		},
		Session: SessionConfig{
			TouchTimeout: 2 * time.Second,
		},
		Blacklist: BlacklistConfig{
			CacheTTL:    60 * time.Second,
			RedisPrefix: "gk:bl:",
		},
		SignedURL: SignedURLConfig{
			DefaultTTL: 15 * time.Minute,
			MaxTTL:     24 * time.Hour,
		},
		EmailVerification: EmailVerificationConfig{
			CodeTTL:   10 * time.Minute,
			OTPDigits: 6,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: 15 * time.Minute,
		},
		Account: AccountConfig{
			DefaultRole:     "member",
			SendWelcomeMail: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			Default:     RatePolicy{Limit: 120, Window: time.Minute},
			RedisPrefix: "gk:rl:",
			Routes: map[string]RatePolicy{
				RouteRegister:          {Limit: 5, Window: time.Hour},
				RouteLogin:             {Limit: 10, Window: 15 * time.Minute},
				RouteExternalLogin:     {Limit: 10, Window: 15 * time.Minute},
				RouteRefresh:           {Limit: 30, Window: time.Minute},
				RoutePasswordForgot:    {Limit: 5, Window: time.Hour},
				RoutePasswordReset:     {Limit: 10, Window: 15 * time.Minute},
				RoutePasswordChange:    {Limit: 5, Window: 15 * time.Minute},
				RouteEmailVerification: {Limit: 5, Window: 15 * time.Minute},
				RouteDownload:          {Limit: 60, Window: time.Minute},
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Sweep: SweepConfig{
			Interval: 5 * time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.RateLimit.Routes = maps.Clone(cfg.RateLimit.Routes)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("JWT hs256 secret must be at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("JWT ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("JWT SigningMethod must be 'hs256' or 'ed25519'")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL < c.JWT.AccessTTL {
		return errors.New("Refresh TTL must be >= JWT AccessTTL")
	}

	// Password
	switch c.Password.Algorithm {
	case password.AlgorithmBcrypt:
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
	case password.AlgorithmArgon2id:
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KiB")
		}
		if c.Password.Time < 1 || c.Password.Parallelism < 1 {
			return errors.New("Password Time and Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
			return errors.New("Password SaltLength and KeyLength must be >= 16")
		}
	default:
		return fmt.Errorf("Password Algorithm %q is not supported", c.Password.Algorithm)
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	if c.Password.Algorithm == password.AlgorithmBcrypt && c.Password.MaxLength > 72 {
		return errors.New("Password MaxLength must be <= 72 with bcrypt")
	}
	if c.Password.Workers < 0 {
		return errors.New("Password Workers must be >= 0")
	}

	// Session and revocation
	if c.Session.TouchTimeout <= 0 {
		return errors.New("Session TouchTimeout must be > 0")
	}
	if c.Blacklist.CacheTTL <= 0 {
		return errors.New("Blacklist CacheTTL must be > 0")
	}
	if c.SignedURL.DefaultTTL <= 0 || c.SignedURL.MaxTTL < c.SignedURL.DefaultTTL {
		return errors.New("SignedURL DefaultTTL must be > 0 and <= MaxTTL")
	}

	// Verification and reset
	if c.EmailVerification.CodeTTL <= 0 {
		return errors.New("EmailVerification CodeTTL must be > 0")
	}
	if c.EmailVerification.OTPDigits < 6 || c.EmailVerification.OTPDigits > 10 {
		return errors.New("EmailVerification OTPDigits must be between 6 and 10")
	}
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if strings.TrimSpace(c.Account.DefaultRole) == "" {
		return errors.New("Account DefaultRole is required")
	}

	// Rate limits
	if c.RateLimit.Enabled {
		if err := c.RateLimit.Default.validate(RouteDefault); err != nil {
			return err
		}
		for route, p := range c.RateLimit.Routes {
			if err := p.validate(route); err != nil {
				return err
			}
		}
	}

	// Observability
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Sweep.Interval <= 0 {
		return errors.New("Sweep Interval must be > 0")
	}

	return nil
}

func (p RatePolicy) validate(route string) error {
	if p.Limit < 0 {
		return fmt.Errorf("RateLimit %s Limit must be >= 0", route)
	}
	if p.Limit > 0 && p.Window <= 0 {
		return fmt.Errorf("RateLimit %s Window must be > 0", route)
	}
	return nil
}
