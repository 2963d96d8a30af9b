package gatekeeper

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email, an account
	// without a local password, or a wrong password. The three cases are not
	// distinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountSuspended is returned when a suspended account logs in, refreshes
	// or presents an access token.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrEmailAlreadyInUse is returned by Register when the email is bound.
	ErrEmailAlreadyInUse = errors.New("email already in use")
	// ErrAccountNotFound is returned by account administration calls.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTokenMissing is returned by Authenticate for an empty bearer token.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed covers bad signatures, wrong token types and undecodable tokens.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned for tokens past their exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for blacklisted access tokens and for refresh
	// tokens that were rotated, revoked or never issued.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrForbidden is returned when an authenticated caller lacks the required role.
	ErrForbidden = errors.New("forbidden")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionNotOwned = errors.New("session belongs to another account")

	ErrLinkInvalid = errors.New("download link invalid")
	ErrLinkExpired = errors.New("download link expired")
	// ErrFileGone is returned when a valid link points at a file that no longer exists.
	ErrFileGone = errors.New("file no longer available")

	// ErrRateLimited is matched by *RateLimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrSuspiciousPayload is returned when request input matches an injection pattern.
	ErrSuspiciousPayload = errors.New("suspicious payload")

	// ErrServiceUnavailable wraps primary storage failures.
	ErrServiceUnavailable = errors.New("service unavailable")

	ErrExternalIdentityRejected   = errors.New("external identity rejected")
	ErrExternalIdentityUnverified = errors.New("external identity email not verified")
	// ErrExternalIdentityDisabled is returned when no verifier is configured.
	ErrExternalIdentityDisabled = errors.New("external identity login disabled")

	ErrVerificationCodeInvalid = errors.New("verification code invalid")
	ErrVerificationCodeExpired = errors.New("verification code expired")

	ErrPasswordResetInvalid = errors.New("password reset token invalid")
	ErrPasswordResetExpired = errors.New("password reset token expired")
	// ErrPasswordPolicy is returned when a new password violates the length policy.
	ErrPasswordPolicy = errors.New("password policy violation")

	// ErrInvalidInput is returned for request fields that fail validation.
	ErrInvalidInput = errors.New("invalid input")

	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError reports a rejected request and when the caller may retry.
type RateLimitError struct {
	Route      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrRateLimited) hold.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrServiceUnavailable, op, err)
}
