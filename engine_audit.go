package gatekeeper

import (
	"context"
	"errors"
	"strconv"
	"time"
)

const (
	auditEventRegister             = "account_register"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventExternalLogin        = "external_login"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshFailure       = "refresh_failure"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventLogout               = "logout"
	auditEventLogoutAll            = "logout_all"
	auditEventSessionRevoked       = "session_revoked"
	auditEventAccountSuspended     = "account_suspended"
	auditEventAccountReinstated    = "account_reinstated"
	auditEventPasswordChange       = "password_change"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventVerificationRequest  = "email_verification_request"
	auditEventVerificationConfirm  = "email_verification_confirm"
	auditEventDownloadGranted      = "download_granted"
	auditEventDownloadRejected     = "download_rejected"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
	auditEventSuspiciousPayload    = "suspicious_payload"
)

// AuditErrorCode is the stable error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrSuspended          AuditErrorCode = "account_suspended"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrTokenMissing       AuditErrorCode = "token_missing"
	auditErrTokenMalformed     AuditErrorCode = "token_malformed"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenRevoked       AuditErrorCode = "token_revoked"
	auditErrSessionNotOwned    AuditErrorCode = "session_not_owned"
	auditErrLinkInvalid        AuditErrorCode = "link_invalid"
	auditErrLinkExpired        AuditErrorCode = "link_expired"
	auditErrFileGone           AuditErrorCode = "file_gone"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrSuspicious         AuditErrorCode = "suspicious_payload"
	auditErrExternalRejected   AuditErrorCode = "external_rejected"
	auditErrExternalUnverified AuditErrorCode = "external_unverified"
	auditErrCodeInvalid        AuditErrorCode = "code_invalid"
	auditErrCodeExpired        AuditErrorCode = "code_expired"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		SessionID: sessionID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountSuspended):
		return auditErrSuspended
	case errors.Is(err, ErrEmailAlreadyInUse):
		return auditErrDuplicate
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrSessionNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrTokenMissing):
		return auditErrTokenMissing
	case errors.Is(err, ErrTokenMalformed):
		return auditErrTokenMalformed
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrSessionNotOwned):
		return auditErrSessionNotOwned
	case errors.Is(err, ErrLinkInvalid):
		return auditErrLinkInvalid
	case errors.Is(err, ErrLinkExpired):
		return auditErrLinkExpired
	case errors.Is(err, ErrFileGone):
		return auditErrFileGone
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSuspiciousPayload):
		return auditErrSuspicious
	case errors.Is(err, ErrExternalIdentityRejected),
		errors.Is(err, ErrExternalIdentityDisabled):
		return auditErrExternalRejected
	case errors.Is(err, ErrExternalIdentityUnverified):
		return auditErrExternalUnverified
	case errors.Is(err, ErrVerificationCodeInvalid),
		errors.Is(err, ErrPasswordResetInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrVerificationCodeExpired),
		errors.Is(err, ErrPasswordResetExpired):
		return auditErrCodeExpired
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrServiceUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
