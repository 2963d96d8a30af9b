package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/jwt"
	"github.com/MrEthical07/gatekeeper/store"
)

// LogoutFailureKind classifies logout failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureMalformed
	LogoutFailureLedger
	LogoutFailureStorage
)

// LogoutResult reports what a logout revoked.
type LogoutResult struct {
	Failure       LogoutFailureKind
	Err           error
	AccountID     string
	SessionID     string
	AccessExpires time.Time
	// RefreshRevoked is true when a refresh token was supplied and revoked.
	RefreshRevoked bool
	// RefreshForeign is true when the supplied refresh token belongs to another
	// account and was left untouched.
	RefreshForeign bool
}

// LogoutAllResult counts what LogoutAll removed.
type LogoutAllResult struct {
	RefreshTokens int64
	Sessions      int64
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	// ParseUnverified reads exp, sub and sid from an access token that the caller
	// has already authenticated.
	ParseUnverified func(string) (*jwt.Claims, error)
	Revoke          func(ctx context.Context, tokenHash string, expiresAt time.Time) error
	HashSecret      func(string) string
	Tokens          store.RefreshTokens
	Sessions        store.Sessions
	Warn            Warner
}

// RunLogout blacklists accessToken until its own expiry, deletes the session it
// is bound to and, when refreshToken is not empty and owned by the same account,
// revokes it. Without a refresh token the credential chain stays usable.
func RunLogout(ctx context.Context, accessToken, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.ParseUnverified(accessToken)
	if err != nil || claims.ExpiresAt == nil {
		return LogoutResult{Failure: LogoutFailureMalformed, Err: err}
	}

	result := LogoutResult{
		AccountID:     claims.AccountID(),
		SessionID:     claims.SessionID,
		AccessExpires: claims.Expiry(),
	}

	if err := deps.Revoke(ctx, deps.HashSecret(accessToken), claims.Expiry()); err != nil {
		result.Failure, result.Err = LogoutFailureLedger, err
		return result
	}

	if claims.SessionID != "" {
		if err := deps.Sessions.DeleteSession(ctx, claims.SessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
			deps.Warn.warn("logout session delete failed", err)
		}
	}

	if refreshToken != "" {
		tokenHash := deps.HashSecret(refreshToken)
		row, err := deps.Tokens.RefreshTokenByHash(ctx, tokenHash)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return result
		case err != nil:
			result.Failure, result.Err = LogoutFailureStorage, err
			return result
		case row.AccountID != result.AccountID:
			result.RefreshForeign = true
			return result
		}
		if err := deps.Tokens.RevokeRefreshToken(ctx, tokenHash); err != nil {
			result.Failure, result.Err = LogoutFailureStorage, err
			return result
		}
		result.RefreshRevoked = true
	}

	return result
}

// RunLogoutAll revokes every refresh token of accountID and deletes all of its
// sessions.
func RunLogoutAll(ctx context.Context, accountID string, deps LogoutDeps) (LogoutAllResult, error) {
	tokens, err := deps.Tokens.RevokeAccountRefreshTokens(ctx, accountID)
	if err != nil {
		return LogoutAllResult{}, err
	}
	sessions, err := deps.Sessions.DeleteAccountSessions(ctx, accountID, "")
	if err != nil {
		return LogoutAllResult{RefreshTokens: tokens}, err
	}
	return LogoutAllResult{RefreshTokens: tokens, Sessions: sessions}, nil
}
