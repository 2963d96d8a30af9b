package gatekeeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// SweepResult reports what one Sweep removed.
type SweepResult struct {
	BlacklistRows    int64
	BlacklistCache   int
	SignedURLs       int64
	RateLimitWindows int
}

// Sweep purges expired blacklist rows and cache entries, expired signed links and
// stale in-memory rate-limit windows. It is idempotent and safe to run from
// several instances at once.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	var errs []error

	bl, err := e.ledger.Sweep(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	result.BlacklistRows, result.BlacklistCache = bl.StoreRows, bl.CacheEntries

	links, err := e.store.PurgeSignedURLs(ctx, e.now())
	if err != nil {
		errs = append(errs, err)
	}
	result.SignedURLs = links

	if e.memRate != nil {
		result.RateLimitWindows = e.memRate.Sweep()
	}

	e.metricInc(MetricSweepRun)
	if len(errs) > 0 {
		return result, unavailable("sweep", errors.Join(errs...))
	}
	return result, nil
}

// RunSweeper calls Sweep every interval until ctx is done. A zero interval uses
// Config.Sweep.Interval.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = e.config.Sweep.Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := e.Sweep(ctx)
			if err != nil {
				e.logger.Warn("sweep failed", zap.Error(err))
				continue
			}
			e.logger.Debug("sweep completed",
				zap.Int64("blacklist_rows", result.BlacklistRows),
				zap.Int("blacklist_cache", result.BlacklistCache),
				zap.Int64("signed_urls", result.SignedURLs),
				zap.Int("rate_windows", result.RateLimitWindows),
			)
		}
	}
}
