package flows

import (
	"context"
	"time"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Account           AccountDeps
	AccountStatus     AccountStatusDeps
	Issue             IssueDeps
	Login             LoginDeps
	Refresh           RefreshDeps
	Validate          ValidateDeps
	Logout            LogoutDeps
	EmailVerification EmailVerificationDeps
	PasswordReset     PasswordResetDeps
}

// TokenMinter signs tokens. The jwt.Manager methods satisfy both fields.
type TokenMinter struct {
	CreateAccess  func(accountID, role, sessionID string) (string, time.Time, error)
	CreateRefresh func(accountID, tokenID, sessionID string) (string, time.Time, error)
}

// Warner logs a swallowed side-effect failure.
type Warner func(msg string, err error)

func (w Warner) warn(msg string, err error) {
	if w != nil {
		w(msg, err)
	}
}

func nowOr(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func contextString(fn func(context.Context) string, ctx context.Context) string {
	if fn == nil {
		return ""
	}
	return fn(ctx)
}
