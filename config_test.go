package gatekeeper

import (
	"testing"
	"time"

	"github.com/MrEthical07/gatekeeper/password"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "hs256 short secret",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "unknown signing method",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "ed25519 without public key",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
				c.JWT.PublicKey = nil
			},
			wantValid: false,
		},
		{
			name: "refresh shorter than access",
			mutate: func(c *Config) {
				c.Refresh.TTL = time.Hour
			},
			wantValid: false,
		},
		{
			name: "bcrypt cost too low",
			mutate: func(c *Config) {
				c.Password.BcryptCost = 3
			},
			wantValid: false,
		},
		{
			name: "bcrypt max length over 72",
			mutate: func(c *Config) {
				c.Password.MaxLength = 128
			},
			wantValid: false,
		},
		{
			name: "argon2id allows long passwords",
			mutate: func(c *Config) {
				c.Password.Algorithm = password.AlgorithmArgon2id
				c.Password.MaxLength = 128
			},
			wantValid: true,
		},
		{
			name: "unknown password algorithm",
			mutate: func(c *Config) {
				c.Password.Algorithm = "scrypt"
			},
			wantValid: false,
		},
		{
			name: "min length below 8",
			mutate: func(c *Config) {
				c.Password.MinLength = 6
			},
			wantValid: false,
		},
		{
			name: "otp digits out of range",
			mutate: func(c *Config) {
				c.EmailVerification.OTPDigits = 4
			},
			wantValid: false,
		},
		{
			name: "signed url default above max",
			mutate: func(c *Config) {
				c.SignedURL.DefaultTTL = 48 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "blank default role",
			mutate: func(c *Config) {
				c.Account.DefaultRole = "  "
			},
			wantValid: false,
		},
		{
			name: "rate policy without window",
			mutate: func(c *Config) {
				c.RateLimit.Routes[RouteLogin] = RatePolicy{Limit: 5}
			},
			wantValid: false,
		},
		{
			name: "rate policy ignored when disabled",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.Routes[RouteLogin] = RatePolicy{Limit: 5}
			},
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "sweep interval zero",
			mutate: func(c *Config) {
				c.Sweep.Interval = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.JWT.PrivateKey = testSecret
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.JWT.AccessTTL != 7*24*time.Hour || cfg.Refresh.TTL != 30*24*time.Hour {
		t.Fatalf("unexpected token lifetimes %v / %v", cfg.JWT.AccessTTL, cfg.Refresh.TTL)
	}
	if cfg.Refresh.RevokeChainOnReuse {
		t.Fatal("chain revocation on reuse must be opt-in")
	}
	if cfg.Password.Algorithm != password.AlgorithmBcrypt || cfg.Password.BcryptCost != 12 {
		t.Fatalf("unexpected password defaults %+v", cfg.Password)
	}
	if cfg.Blacklist.CacheTTL != time.Minute {
		t.Fatalf("unexpected blacklist cache ttl %v", cfg.Blacklist.CacheTTL)
	}
	if p := cfg.RateLimit.Policy(RouteLogin); p.Limit != 10 || p.Window != 15*time.Minute {
		t.Fatalf("unexpected login policy %+v", p)
	}
	if p := cfg.RateLimit.Policy("unlisted"); p != cfg.RateLimit.Default {
		t.Fatalf("unlisted route must use default, got %+v", p)
	}
}

func TestConfigIsCopiedOnBuild(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.PrivateKey = append([]byte(nil), testSecret...)
	env := newTestEnv(t, func(c *Config) { *c = cfg })

	cfg.RateLimit.Routes[RouteLogin] = RatePolicy{Limit: 1, Window: time.Second}
	cfg.JWT.PrivateKey[0] = 'X'

	active := env.engine.Config()
	if active.RateLimit.Routes[RouteLogin].Limit != 10 {
		t.Fatal("engine config must not alias caller maps")
	}
	if active.JWT.PrivateKey[0] != testSecret[0] {
		t.Fatal("engine config must not alias caller key bytes")
	}
}
