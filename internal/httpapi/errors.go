package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/middleware"
)

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, gatekeeper.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"
	case errors.Is(err, gatekeeper.ErrSuspiciousPayload):
		return http.StatusBadRequest, "REQUEST_REJECTED", "request rejected"
	case errors.Is(err, gatekeeper.ErrPasswordPolicy):
		return http.StatusBadRequest, "PASSWORD_POLICY", "password does not meet the length policy"
	case errors.Is(err, gatekeeper.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", "invalid input"

	case errors.Is(err, gatekeeper.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"
	case errors.Is(err, gatekeeper.ErrTokenMissing):
		return http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token"
	case errors.Is(err, gatekeeper.ErrTokenMalformed):
		return http.StatusUnauthorized, "TOKEN_INVALID", "token invalid"
	case errors.Is(err, gatekeeper.ErrTokenExpired):
		return http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired"
	case errors.Is(err, gatekeeper.ErrTokenRevoked):
		return http.StatusUnauthorized, "TOKEN_REVOKED", "token revoked"
	case errors.Is(err, gatekeeper.ErrExternalIdentityRejected):
		return http.StatusUnauthorized, "EXTERNAL_IDENTITY_REJECTED", "identity token rejected"

	case errors.Is(err, gatekeeper.ErrAccountSuspended):
		return http.StatusForbidden, "ACCOUNT_SUSPENDED", "account suspended"
	case errors.Is(err, gatekeeper.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "forbidden"
	case errors.Is(err, gatekeeper.ErrSessionNotOwned):
		return http.StatusForbidden, "SESSION_NOT_OWNED", "session belongs to another account"
	case errors.Is(err, gatekeeper.ErrExternalIdentityUnverified):
		return http.StatusForbidden, "EXTERNAL_EMAIL_UNVERIFIED", "identity provider email not verified"
	case errors.Is(err, gatekeeper.ErrLinkInvalid):
		return http.StatusForbidden, "LINK_INVALID", "download link invalid"

	case errors.Is(err, gatekeeper.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "session not found"
	case errors.Is(err, gatekeeper.ErrAccountNotFound):
		return http.StatusNotFound, "ACCOUNT_NOT_FOUND", "account not found"
	case errors.Is(err, gatekeeper.ErrEmailAlreadyInUse):
		return http.StatusConflict, "EMAIL_IN_USE", "email already in use"
	case errors.Is(err, gatekeeper.ErrLinkExpired):
		return http.StatusGone, "LINK_EXPIRED", "download link expired"
	case errors.Is(err, gatekeeper.ErrFileGone):
		return http.StatusGone, "FILE_GONE", "file no longer available"

	case errors.Is(err, gatekeeper.ErrVerificationCodeInvalid):
		return http.StatusBadRequest, "VERIFICATION_CODE_INVALID", "verification code invalid"
	case errors.Is(err, gatekeeper.ErrVerificationCodeExpired):
		return http.StatusBadRequest, "VERIFICATION_CODE_EXPIRED", "verification code expired"
	case errors.Is(err, gatekeeper.ErrPasswordResetInvalid):
		return http.StatusBadRequest, "RESET_TOKEN_INVALID", "password reset token invalid"
	case errors.Is(err, gatekeeper.ErrPasswordResetExpired):
		return http.StatusBadRequest, "RESET_TOKEN_EXPIRED", "password reset token expired"

	case errors.Is(err, gatekeeper.ErrExternalIdentityDisabled):
		return http.StatusNotImplemented, "NOT_IMPLEMENTED", "external identity login is not configured"
	case errors.Is(err, gatekeeper.ErrServiceUnavailable),
		errors.Is(err, gatekeeper.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func (h *Handler) writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapError(err)

	var rl *gatekeeper.RateLimitError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", retryAfterSeconds(rl))
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Int("status_code", status),
		zap.String("error_code", code),
		zap.String("request_id", requestIDFromContext(ctx)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("http operation failed", fields...)
	} else {
		h.logger.Warn("http operation failed", fields...)
	}
	writeError(w, status, code, msg)
}

// middlewareError renders middleware rejections in the API envelope.
func (h *Handler) middlewareError(operation string) middleware.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		h.writeMappedError(r.Context(), w, operation, err)
	}
}
