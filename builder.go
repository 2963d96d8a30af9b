package gatekeeper

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper/filestore"
	"github.com/MrEthical07/gatekeeper/internal"
	internalaudit "github.com/MrEthical07/gatekeeper/internal/audit"
	"github.com/MrEthical07/gatekeeper/internal/blacklist"
	"github.com/MrEthical07/gatekeeper/internal/flows"
	"github.com/MrEthical07/gatekeeper/internal/rate"
	"github.com/MrEthical07/gatekeeper/jwt"
	"github.com/MrEthical07/gatekeeper/mail"
	"github.com/MrEthical07/gatekeeper/password"
	"github.com/MrEthical07/gatekeeper/session"
	"github.com/MrEthical07/gatekeeper/store"
	"github.com/MrEthical07/gatekeeper/waf"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	store  store.Store
	redis  redis.UniversalClient
	logger *zap.Logger

	mailer    Mailer
	files     filestore.Source
	external  ExternalVerifier
	auditSink AuditSink
	scanner   *waf.Scanner
	clock     func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the persistence backend. Required.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis moves the rate-limit counters and the blacklist cache to Redis so
// several instances share them. Without it both live in process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger for swallowed side-effect failures.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMailer sets the outbound mail collaborator. Without it mail is only logged.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithFileSource sets where signed download links are served from.
func (b *Builder) WithFileSource(src filestore.Source) *Builder {
	b.files = src
	return b
}

// WithExternalVerifier enables LoginWithExternalIdentity.
func (b *Builder) WithExternalVerifier(v ExternalVerifier) *Builder {
	b.external = v
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithPayloadScanner replaces the default WAF scanner.
func (b *Builder) WithPayloadScanner(s *waf.Scanner) *Builder {
	b.scanner = s
	return b
}

// WithClock overrides time.Now for every time-dependent decision. Tests only.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("store required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		store:    b.store,
		clock:    clock,
		logger:   logger,
		mailer:   b.mailer,
		files:    b.files,
		external: b.external,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if engine.mailer == nil {
		engine.mailer = mail.NewLog(logger)
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.Refresh.TTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}
	engine.jwt = jm

	// -------- PASSWORDS --------
	pm, err := newPasswordManager(cfg.Password)
	if err != nil {
		return nil, err
	}
	engine.passwords = password.NewPool(pm, cfg.Password.Workers)
	engine.policy = password.Policy{MinBytes: cfg.Password.MinLength, MaxBytes: cfg.Password.MaxLength}
	// Compared against when the account is unknown so both paths cost one hash.
	engine.dummyHash, err = pm.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	// -------- SESSIONS, REVOCATION, RATE LIMITS --------
	engine.sessions = session.NewRegistry(b.store, clock)

	var cache blacklist.Cache
	var rateStore rate.Store
	if b.redis != nil {
		cache = blacklist.NewRedisCache(b.redis, cfg.Blacklist.RedisPrefix)
		rateStore = rate.NewRedisStore(b.redis, cfg.RateLimit.RedisPrefix)
	} else {
		memCache := blacklist.NewMemoryCache(clock)
		memRate := rate.NewMemoryStore(clock)
		cache, rateStore = memCache, memRate
		engine.memRate = memRate
	}
	engine.ledger = blacklist.New(b.store, cache, blacklist.Config{
		CacheTTL: cfg.Blacklist.CacheTTL,
		Now:      clock,
		Logger:   logger,
	})
	engine.limiter = rate.New(rateStore, clock)

	engine.scanner = b.scanner
	if engine.scanner == nil {
		engine.scanner = waf.New()
	}

	// -------- OBSERVABILITY --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	engine.flows = flows.New(engine.flowDeps())

	b.built = true

	return engine, nil
}

func newPasswordManager(cfg PasswordConfig) (*password.Manager, error) {
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	argon, err := password.NewArgon2(password.Argon2Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Algorithm == password.AlgorithmArgon2id {
		return password.NewManager(argon, bc), nil
	}
	return password.NewManager(bc, argon), nil
}

func (e *Engine) flowDeps() flows.Deps {
	warn := flows.Warner(func(msg string, err error) {
		e.logger.Warn(msg, zap.Error(err))
	})
	minter := flows.TokenMinter{
		CreateAccess:  e.jwt.CreateAccess,
		CreateRefresh: e.jwt.CreateRefresh,
	}
	checkPolicy := func(pw string) error {
		if err := e.policy.Check(pw); err != nil {
			return errors.Join(ErrPasswordPolicy, err)
		}
		return nil
	}

	return flows.Deps{
		Account: flows.AccountDeps{
			Accounts:       e.store,
			CheckPolicy:    checkPolicy,
			HashPassword:   e.passwords.Hash,
			VerifyPassword: e.passwords.Verify,
			NewID:          uuid.NewString,
			Now:            e.now,
		},
		AccountStatus: flows.AccountStatusDeps{
			Accounts: e.store,
			Tokens:   e.store,
			Sessions: e.store,
		},
		Issue: flows.IssueDeps{
			Tokens:              e.store,
			Minter:              minter,
			HashSecret:          internal.HashSecret,
			NewID:               uuid.NewString,
			OpenSession:         e.sessions.Open,
			ClientIPFromContext: ClientIPFromContext,
			UserAgent:           userAgentFromContext,
			Now:                 e.now,
			Warn:                warn,
		},
		Login: flows.LoginDeps{
			Accounts:       e.store,
			VerifyPassword: e.passwords.Verify,
			DummyVerify: func(ctx context.Context, pw string) {
				_, _ = e.passwords.Verify(ctx, pw, e.dummyHash)
			},
			NeedsUpgrade:   e.passwords.NeedsUpgrade,
			HashPassword:   e.passwords.Hash,
			UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
			Warn:           warn,
		},
		Refresh: flows.RefreshDeps{
			ParseRefresh:       e.jwt.ParseRefresh,
			Tokens:             e.store,
			Accounts:           e.store,
			Minter:             minter,
			HashSecret:         internal.HashSecret,
			NewID:              uuid.NewString,
			RevokeChainOnReuse: e.config.Refresh.RevokeChainOnReuse,
			Now:                e.now,
			Warn:               warn,
		},
		Validate: flows.ValidateDeps{
			ParseAccess: e.jwt.ParseAccess,
			IsRevoked:   e.ledger.IsRevoked,
			HashSecret:  internal.HashSecret,
			Accounts:    e.store,
		},
		Logout: flows.LogoutDeps{
			ParseUnverified: e.jwt.ParseUnverified,
			Revoke:          e.ledger.Revoke,
			HashSecret:      internal.HashSecret,
			Tokens:          e.store,
			Sessions:        e.store,
			Warn:            warn,
		},
		EmailVerification: flows.EmailVerificationDeps{
			Accounts:          e.store,
			CodeTTL:           e.config.EmailVerification.CodeTTL,
			OTPDigits:         e.config.EmailVerification.OTPDigits,
			NewOTP:            internal.NewOTP,
			HashSecret:        internal.HashSecret,
			ConstantTimeEqual: internal.ConstantTimeEqual,
			Now:               e.now,
		},
		PasswordReset: flows.PasswordResetDeps{
			Accounts:          e.store,
			Tokens:            e.store,
			Sessions:          e.store,
			TokenTTL:          e.config.PasswordReset.TokenTTL,
			NewToken:          internal.NewToken,
			HashSecret:        internal.HashSecret,
			ConstantTimeEqual: internal.ConstantTimeEqual,
			CheckPolicy:       checkPolicy,
			HashPassword:      e.passwords.Hash,
			Now:               e.now,
			Warn:              warn,
		},
	}
}
