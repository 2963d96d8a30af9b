package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/store"
)

// PasswordResetFailureKind classifies password reset failures.
type PasswordResetFailureKind int

const (
	PasswordResetFailureNone PasswordResetFailureKind = iota
	PasswordResetFailureNoAccount
	PasswordResetFailureInvalid
	PasswordResetFailureExpired
	PasswordResetFailurePolicy
	PasswordResetFailureGenerate
	PasswordResetFailureHash
	PasswordResetFailureStorage
)

// PasswordResetResult carries the account and, on request, the plaintext token to
// deliver.
type PasswordResetResult struct {
	Failure PasswordResetFailureKind
	Err     error
	Account *store.Account
	Token   string
	// Revoked counts refresh tokens revoked by a completed reset; Sessions counts
	// deleted sessions.
	Revoked  int64
	Sessions int64
}

// PasswordResetDeps captures reset dependencies.
type PasswordResetDeps struct {
	Accounts          store.Accounts
	Tokens            store.RefreshTokens
	Sessions          store.Sessions
	TokenTTL          time.Duration
	NewToken          func() (string, error)
	HashSecret        func(string) string
	ConstantTimeEqual func(a, b string) bool
	CheckPolicy       func(password string) error
	HashPassword      func(ctx context.Context, password string) (string, error)
	Now               func() time.Time
	Warn              Warner
}

// RunRequestPasswordReset stores the hash of a fresh reset token for email. The
// caller must answer identically whatever the failure kind.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) PasswordResetResult {
	now := nowOr(deps.Now)

	account, err := deps.Accounts.AccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return PasswordResetResult{Failure: PasswordResetFailureNoAccount}
		}
		return PasswordResetResult{Failure: PasswordResetFailureStorage, Err: err}
	}

	token, err := deps.NewToken()
	if err != nil {
		return PasswordResetResult{Failure: PasswordResetFailureGenerate, Err: err, Account: account}
	}
	if err := deps.Accounts.SetPasswordReset(ctx, account.ID, deps.HashSecret(token), now().Add(deps.TokenTTL)); err != nil {
		return PasswordResetResult{Failure: PasswordResetFailureStorage, Err: err, Account: account}
	}
	return PasswordResetResult{Account: account, Token: token}
}

// RunResetPassword consumes a reset token, replaces the password hash and revokes
// every refresh token and session of the account. Revocation failures after the
// password was replaced are logged, not returned.
func RunResetPassword(ctx context.Context, email, token, newPassword string, deps PasswordResetDeps) PasswordResetResult {
	now := nowOr(deps.Now)

	account, err := deps.Accounts.AccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return PasswordResetResult{Failure: PasswordResetFailureInvalid}
		}
		return PasswordResetResult{Failure: PasswordResetFailureStorage, Err: err}
	}
	if account.ResetTokenHash == "" || account.ResetExpiresAt == nil {
		return PasswordResetResult{Failure: PasswordResetFailureInvalid, Account: account}
	}

	hash := deps.HashSecret(token)
	if !deps.ConstantTimeEqual(hash, account.ResetTokenHash) {
		return PasswordResetResult{Failure: PasswordResetFailureInvalid, Account: account}
	}
	if !now().Before(*account.ResetExpiresAt) {
		return PasswordResetResult{Failure: PasswordResetFailureExpired, Account: account}
	}
	if err := deps.CheckPolicy(newPassword); err != nil {
		return PasswordResetResult{Failure: PasswordResetFailurePolicy, Err: err, Account: account}
	}

	passwordHash, err := deps.HashPassword(ctx, newPassword)
	if err != nil {
		return PasswordResetResult{Failure: PasswordResetFailureHash, Err: err, Account: account}
	}
	if err := deps.Accounts.CompletePasswordReset(ctx, account.ID, hash, passwordHash); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return PasswordResetResult{Failure: PasswordResetFailureInvalid, Account: account}
		}
		return PasswordResetResult{Failure: PasswordResetFailureStorage, Err: err, Account: account}
	}

	result := PasswordResetResult{Account: account}
	if result.Revoked, err = deps.Tokens.RevokeAccountRefreshTokens(ctx, account.ID); err != nil {
		deps.Warn.warn("password reset refresh revocation failed", err)
	}
	if result.Sessions, err = deps.Sessions.DeleteAccountSessions(ctx, account.ID, ""); err != nil {
		deps.Warn.warn("password reset session cleanup failed", err)
	}
	return result
}
