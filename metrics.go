package gatekeeper

import internalmetrics "github.com/MrEthical07/gatekeeper/internal/metrics"

// MetricID identifies a counter or histogram in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess             = internalmetrics.MetricLoginSuccess
	MetricLoginFailure             = internalmetrics.MetricLoginFailure
	MetricExternalLoginSuccess     = internalmetrics.MetricExternalLoginSuccess
	MetricExternalLoginFailure     = internalmetrics.MetricExternalLoginFailure
	MetricRefreshSuccess           = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure           = internalmetrics.MetricRefreshFailure
	MetricRefreshReuseDetected     = internalmetrics.MetricRefreshReuseDetected
	MetricRefreshRaceLost          = internalmetrics.MetricRefreshRaceLost
	MetricAuthenticateSuccess      = internalmetrics.MetricAuthenticateSuccess
	MetricAuthenticateFailure      = internalmetrics.MetricAuthenticateFailure
	MetricBlacklistHit             = internalmetrics.MetricBlacklistHit
	MetricTokenBlacklisted         = internalmetrics.MetricTokenBlacklisted
	MetricRateLimitHit             = internalmetrics.MetricRateLimitHit
	MetricSuspiciousPayload        = internalmetrics.MetricSuspiciousPayload
	MetricSessionCreated           = internalmetrics.MetricSessionCreated
	MetricSessionRevoked           = internalmetrics.MetricSessionRevoked
	MetricLogout                   = internalmetrics.MetricLogout
	MetricLogoutAll                = internalmetrics.MetricLogoutAll
	MetricAccountCreated           = internalmetrics.MetricAccountCreated
	MetricAccountDuplicate         = internalmetrics.MetricAccountDuplicate
	MetricAccountSuspended         = internalmetrics.MetricAccountSuspended
	MetricAccountReinstated        = internalmetrics.MetricAccountReinstated
	MetricPasswordChangeSuccess    = internalmetrics.MetricPasswordChangeSuccess
	MetricPasswordChangeFailure    = internalmetrics.MetricPasswordChangeFailure
	MetricPasswordRehashed         = internalmetrics.MetricPasswordRehashed
	MetricPasswordResetRequest     = internalmetrics.MetricPasswordResetRequest
	MetricPasswordResetSuccess     = internalmetrics.MetricPasswordResetSuccess
	MetricPasswordResetFailure     = internalmetrics.MetricPasswordResetFailure
	MetricEmailVerificationRequest = internalmetrics.MetricEmailVerificationRequest
	MetricEmailVerificationSuccess = internalmetrics.MetricEmailVerificationSuccess
	MetricEmailVerificationFailure = internalmetrics.MetricEmailVerificationFailure
	MetricDownloadGranted          = internalmetrics.MetricDownloadGranted
	MetricDownloadServed           = internalmetrics.MetricDownloadServed
	MetricDownloadRejected         = internalmetrics.MetricDownloadRejected
	MetricSweepRun                 = internalmetrics.MetricSweepRun
	MetricAuthenticateLatency      = internalmetrics.MetricAuthenticateLatency

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and the optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a Metrics configured by cfg. When Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}

// MetricsSnapshot returns a copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
