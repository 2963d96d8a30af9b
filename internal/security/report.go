package security

import "time"

// Bcrypt work factors below this are reported as weak.
const minRecommendedBcryptCost = 10

type PasswordReport struct {
	Algorithm   string
	BcryptCost  int
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

type Report struct {
	SigningAlgorithm         string
	AccessTTL                time.Duration
	RefreshTTL               time.Duration
	Password                 PasswordReport
	RefreshReuseRevokesChain bool
	RateLimitingActive       bool
	SharedCaches             bool
	AuditActive              bool
	MetricsActive            bool
	VerificationOnRegister   bool
	PasswordResetLinkActive  bool
	ExternalLoginActive      bool
	DownloadsActive          bool
	SignedURLMaxTTL          time.Duration
	Warnings                 []string
}

type ReportInput struct {
	SigningAlgorithm         string
	AccessTTL                time.Duration
	RefreshTTL               time.Duration
	Password                 PasswordReport
	RevokeChainOnReuse       bool
	RateLimitEnabled         bool
	RedisConfigured          bool
	AuditEnabled             bool
	MetricsEnabled           bool
	SendVerificationOnSignup bool
	PasswordResetLinkBase    string
	ExternalVerifierSet      bool
	FileSourceSet            bool
	SignedURLMaxTTL          time.Duration
}

// BuildReport summarizes input and lists the settings an operator should look at.
func BuildReport(input ReportInput) Report {
	var warnings []string
	if !input.RateLimitEnabled {
		warnings = append(warnings, "rate limiting is disabled")
	}
	if input.Password.Algorithm == "bcrypt" && input.Password.BcryptCost < minRecommendedBcryptCost {
		warnings = append(warnings, "bcrypt cost is below 10")
	}
	if input.RefreshTTL > 0 && input.AccessTTL > input.RefreshTTL/2 {
		warnings = append(warnings, "access token lifetime is more than half the refresh lifetime")
	}
	if input.PasswordResetLinkBase == "" {
		warnings = append(warnings, "password reset mails carry a bare token")
	}
	if !input.AuditEnabled {
		warnings = append(warnings, "audit events are not emitted")
	}

	return Report{
		SigningAlgorithm:         input.SigningAlgorithm,
		AccessTTL:                input.AccessTTL,
		RefreshTTL:               input.RefreshTTL,
		Password:                 input.Password,
		RefreshReuseRevokesChain: input.RevokeChainOnReuse,
		RateLimitingActive:       input.RateLimitEnabled,
		SharedCaches:             input.RedisConfigured,
		AuditActive:              input.AuditEnabled,
		MetricsActive:            input.MetricsEnabled,
		VerificationOnRegister:   input.SendVerificationOnSignup,
		PasswordResetLinkActive:  input.PasswordResetLinkBase != "",
		ExternalLoginActive:      input.ExternalVerifierSet,
		DownloadsActive:          input.FileSourceSet,
		SignedURLMaxTTL:          input.SignedURLMaxTTL,
		Warnings:                 warnings,
	}
}
