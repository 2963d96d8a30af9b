package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/jwt"
	"github.com/MrEthical07/gatekeeper/store"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureExpired
	RefreshFailureMalformed
	RefreshFailureUnknown
	RefreshFailureOwnerMismatch
	RefreshFailureReuse
	RefreshFailureRowExpired
	RefreshFailureAccountMissing
	RefreshFailureSuspended
	RefreshFailureRaceLost
	RefreshFailureStorage
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	AccountID string
	SessionID string
	ChainID   string
	// ChainRevoked counts tokens revoked by reuse detection.
	ChainRevoked int64

	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh       func(string) (*jwt.Claims, error)
	Tokens             store.RefreshTokens
	Accounts           store.Accounts
	Minter             TokenMinter
	HashSecret         func(string) string
	NewID              func() string
	RevokeChainOnReuse bool
	Now                func() time.Time
	Warn               Warner
}

// RunRefresh validates refreshToken, rotates it with a compare-and-swap and mints
// a new access token. Exactly one of several concurrent callers presenting the
// same token wins the rotation.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	now := nowOr(deps.Now)

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		if jwt.IsExpired(err) {
			return RefreshResult{Failure: RefreshFailureExpired, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureMalformed, Err: err}
	}
	accountID := claims.AccountID()

	row, err := deps.Tokens.RefreshTokenByHash(ctx, deps.HashSecret(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureUnknown, AccountID: accountID}
		}
		return RefreshResult{Failure: RefreshFailureStorage, Err: err, AccountID: accountID}
	}

	result := RefreshResult{
		AccountID: accountID,
		SessionID: claims.SessionID,
		ChainID:   row.ChainID,
	}

	if row.AccountID != accountID || row.ID != claims.ID {
		result.Failure = RefreshFailureOwnerMismatch
		return result
	}

	if row.Revoked {
		result.Failure = RefreshFailureReuse
		if deps.RevokeChainOnReuse {
			n, err := deps.Tokens.RevokeRefreshChain(ctx, row.ChainID)
			if err != nil {
				deps.Warn.warn("refresh chain revocation failed", err)
			}
			result.ChainRevoked = n
		}
		return result
	}

	if !now().Before(row.ExpiresAt) {
		result.Failure = RefreshFailureRowExpired
		return result
	}

	account, err := deps.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			result.Failure = RefreshFailureAccountMissing
			return result
		}
		result.Failure, result.Err = RefreshFailureStorage, err
		return result
	}
	if account.Suspended {
		result.Failure = RefreshFailureSuspended
		return result
	}

	next, err := mintRefresh(accountID, row.ChainID, claims.SessionID, deps.Minter, deps.HashSecret, deps.NewID, now)
	if err != nil {
		result.Failure, result.Err = RefreshFailureIssue, err
		return result
	}

	if err := deps.Tokens.RotateRefreshToken(ctx, row.ID, next.row); err != nil {
		if errors.Is(err, store.ErrConflict) {
			result.Failure = RefreshFailureRaceLost
			return result
		}
		result.Failure, result.Err = RefreshFailureStorage, err
		return result
	}

	access, accessExp, err := deps.Minter.CreateAccess(accountID, account.Role, claims.SessionID)
	if err != nil {
		result.Failure, result.Err = RefreshFailureIssue, err
		return result
	}

	result.AccessToken = access
	result.AccessExpiresAt = accessExp
	result.RefreshToken = next.token
	result.RefreshExpiresAt = next.row.ExpiresAt
	return result
}
