package internaldefs

import (
	"github.com/MrEthical07/gatekeeper"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   gatekeeper.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   gatekeeper.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: gatekeeper.MetricLoginSuccess, Name: "gatekeeper_login_success_total", Help: "Successful password logins."},
	{ID: gatekeeper.MetricLoginFailure, Name: "gatekeeper_login_failure_total", Help: "Failed password logins."},
	{ID: gatekeeper.MetricExternalLoginSuccess, Name: "gatekeeper_external_login_success_total", Help: "Successful identity provider logins."},
	{ID: gatekeeper.MetricExternalLoginFailure, Name: "gatekeeper_external_login_failure_total", Help: "Failed identity provider logins."},
	{ID: gatekeeper.MetricRefreshSuccess, Name: "gatekeeper_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: gatekeeper.MetricRefreshFailure, Name: "gatekeeper_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: gatekeeper.MetricRefreshReuseDetected, Name: "gatekeeper_refresh_reuse_detected_total", Help: "Presentations of an already rotated refresh token."},
	{ID: gatekeeper.MetricRefreshRaceLost, Name: "gatekeeper_refresh_race_lost_total", Help: "Concurrent refresh attempts that lost the rotation."},
	{ID: gatekeeper.MetricAuthenticateSuccess, Name: "gatekeeper_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: gatekeeper.MetricAuthenticateFailure, Name: "gatekeeper_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: gatekeeper.MetricBlacklistHit, Name: "gatekeeper_blacklist_hit_total", Help: "Access tokens rejected by the revocation ledger."},
	{ID: gatekeeper.MetricTokenBlacklisted, Name: "gatekeeper_token_blacklisted_total", Help: "Access tokens added to the revocation ledger."},
	{ID: gatekeeper.MetricRateLimitHit, Name: "gatekeeper_rate_limit_hit_total", Help: "Requests rejected by a rate limit policy."},
	{ID: gatekeeper.MetricSuspiciousPayload, Name: "gatekeeper_suspicious_payload_total", Help: "Requests rejected by the payload scanner."},
	{ID: gatekeeper.MetricSessionCreated, Name: "gatekeeper_session_created_total", Help: "Sessions opened."},
	{ID: gatekeeper.MetricSessionRevoked, Name: "gatekeeper_session_revoked_total", Help: "Sessions deleted."},
	{ID: gatekeeper.MetricLogout, Name: "gatekeeper_logout_total", Help: "Single session logouts."},
	{ID: gatekeeper.MetricLogoutAll, Name: "gatekeeper_logout_all_total", Help: "Logouts from every session."},
	{ID: gatekeeper.MetricAccountCreated, Name: "gatekeeper_account_created_total", Help: "Accounts created."},
	{ID: gatekeeper.MetricAccountDuplicate, Name: "gatekeeper_account_duplicate_total", Help: "Registrations rejected for a bound email."},
	{ID: gatekeeper.MetricAccountSuspended, Name: "gatekeeper_account_suspended_total", Help: "Account suspensions."},
	{ID: gatekeeper.MetricAccountReinstated, Name: "gatekeeper_account_reinstated_total", Help: "Account reinstatements."},
	{ID: gatekeeper.MetricPasswordChangeSuccess, Name: "gatekeeper_password_change_success_total", Help: "Successful password changes."},
	{ID: gatekeeper.MetricPasswordChangeFailure, Name: "gatekeeper_password_change_failure_total", Help: "Failed password changes."},
	{ID: gatekeeper.MetricPasswordRehashed, Name: "gatekeeper_password_rehashed_total", Help: "Password hashes upgraded at login."},
	{ID: gatekeeper.MetricPasswordResetRequest, Name: "gatekeeper_password_reset_request_total", Help: "Password reset requests."},
	{ID: gatekeeper.MetricPasswordResetSuccess, Name: "gatekeeper_password_reset_success_total", Help: "Completed password resets."},
	{ID: gatekeeper.MetricPasswordResetFailure, Name: "gatekeeper_password_reset_failure_total", Help: "Rejected password reset confirmations."},
	{ID: gatekeeper.MetricEmailVerificationRequest, Name: "gatekeeper_email_verification_request_total", Help: "Verification codes sent."},
	{ID: gatekeeper.MetricEmailVerificationSuccess, Name: "gatekeeper_email_verification_success_total", Help: "Confirmed email addresses."},
	{ID: gatekeeper.MetricEmailVerificationFailure, Name: "gatekeeper_email_verification_failure_total", Help: "Rejected verification codes."},
	{ID: gatekeeper.MetricDownloadGranted, Name: "gatekeeper_download_granted_total", Help: "Signed download links granted."},
	{ID: gatekeeper.MetricDownloadServed, Name: "gatekeeper_download_served_total", Help: "Files served through signed links."},
	{ID: gatekeeper.MetricDownloadRejected, Name: "gatekeeper_download_rejected_total", Help: "Rejected download links."},
	{ID: gatekeeper.MetricSweepRun, Name: "gatekeeper_sweep_run_total", Help: "Completed sweeps of expired records."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: gatekeeper.MetricAuthenticateLatency, Name: "gatekeeper_authenticate_latency_seconds", Help: "Access token authentication latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "gatekeeper_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."
)

// HistogramUpperBounds are the bucket upper bounds in seconds, excluding +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundLabels are the "le" label values for each bucket, +Inf last.
var HistogramBoundLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
