package blacklist

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper/store"
)

// DefaultCacheTTL bounds how long a confirmed revocation is served from cache.
const DefaultCacheTTL = 60 * time.Second

// Config configures a Ledger.
type Config struct {
	CacheTTL time.Duration
	Now      func() time.Time
	Logger   *zap.Logger
}

// Ledger records revoked access tokens until their natural expiry.
type Ledger struct {
	store    store.Blacklist
	cache    Cache
	cacheTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// SweepResult reports what one Sweep removed.
type SweepResult struct {
	StoreRows    int64
	CacheEntries int
}

// New returns a Ledger. A nil cache disables caching.
func New(s store.Blacklist, cache Cache, cfg Config) *Ledger {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Ledger{
		store:    s,
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		now:      cfg.Now,
		logger:   cfg.Logger.With(zap.String("component", "blacklist")),
	}
}

// Revoke records tokenHash as revoked until expiresAt. Tokens already past their
// expiry are skipped, since signature verification rejects them anyway.
func (l *Ledger) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	now := l.now()
	if !expiresAt.After(now) {
		return nil
	}

	if err := l.store.AddBlacklistEntry(ctx, &store.BlacklistEntry{
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return err
	}
	l.prime(ctx, tokenHash, expiresAt.Sub(now))
	return nil
}

// IsRevoked reports whether tokenHash is blacklisted. A cache hit answers without
// touching storage; a miss always consults storage.
func (l *Ledger) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	if l.cache != nil {
		hit, err := l.cache.Contains(ctx, tokenHash)
		if err != nil {
			l.logger.Warn("blacklist cache read failed", zap.Error(err))
		} else if hit {
			return true, nil
		}
	}

	now := l.now()
	revoked, err := l.store.BlacklistEntryExists(ctx, tokenHash, now)
	if err != nil {
		return false, err
	}
	if revoked {
		// Remaining lifetime is unknown here; CacheTTL bounds the entry.
		l.prime(ctx, tokenHash, l.cacheTTL)
	}
	return revoked, nil
}

// Sweep purges expired rows and, for a MemoryCache, expired cache entries.
func (l *Ledger) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if mc, ok := l.cache.(*MemoryCache); ok {
		res.CacheEntries = mc.Sweep()
	}
	n, err := l.store.PurgeBlacklist(ctx, l.now())
	res.StoreRows = n
	return res, err
}

func (l *Ledger) prime(ctx context.Context, tokenHash string, remaining time.Duration) {
	if l.cache == nil {
		return
	}
	ttl := l.cacheTTL
	if remaining < ttl {
		ttl = remaining
	}
	if err := l.cache.Add(ctx, tokenHash, ttl); err != nil {
		l.logger.Warn("blacklist cache write failed", zap.Error(err))
	}
}
