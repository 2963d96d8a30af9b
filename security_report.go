package gatekeeper

import "github.com/MrEthical07/gatekeeper/internal/security"

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by [Engine.SecurityReport].
type SecurityReport = security.Report

// SecurityReport describes the active configuration: token lifetimes, password
// hashing parameters, abuse controls and optional integrations. Warnings lists
// settings that weaken the deployment.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: cfg.JWT.SigningMethod,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.Refresh.TTL,
		Password: security.PasswordReport{
			Algorithm:   string(cfg.Password.Algorithm),
			BcryptCost:  cfg.Password.BcryptCost,
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
			MinLength:   cfg.Password.MinLength,
		},
		RevokeChainOnReuse:       cfg.Refresh.RevokeChainOnReuse,
		RateLimitEnabled:         cfg.RateLimit.Enabled,
		RedisConfigured:          e.memRate == nil,
		AuditEnabled:             cfg.Audit.Enabled,
		MetricsEnabled:           cfg.Metrics.Enabled,
		SendVerificationOnSignup: cfg.EmailVerification.SendOnRegister,
		PasswordResetLinkBase:    cfg.PasswordReset.LinkBase,
		ExternalVerifierSet:      e.external != nil,
		FileSourceSet:            e.files != nil,
		SignedURLMaxTTL:          cfg.SignedURL.MaxTTL,
	})
}
