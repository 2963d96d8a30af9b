package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup by key matches no record.
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned on unique-key violations and on lost conditional updates.
	ErrConflict = errors.New("store: conflict")
)

// Accounts persists identity records. Emails are stored lower-cased.
type Accounts interface {
	CreateAccount(ctx context.Context, account *Account) error
	AccountByID(ctx context.Context, id string) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByExternalID(ctx context.Context, externalID string) (*Account, error)

	SetPasswordHash(ctx context.Context, id, passwordHash string) error
	SetSuspended(ctx context.Context, id string, suspended bool) error
	// LinkExternalIdentity binds externalID to the account and marks its email verified.
	LinkExternalIdentity(ctx context.Context, id, externalID string) error

	SetVerificationCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error
	// ConfirmEmail sets EmailVerified and clears the code, only if the stored code
	// hash still equals codeHash. A lost race returns ErrConflict.
	ConfirmEmail(ctx context.Context, id, codeHash string) error

	SetPasswordReset(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	// CompletePasswordReset replaces the password hash and clears the reset fields,
	// only if the stored reset hash still equals tokenHash. A lost race returns ErrConflict.
	CompletePasswordReset(ctx context.Context, id, tokenHash, passwordHash string) error
}

// RefreshTokens persists rotation chains. Rows are never deleted.
type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// RotateRefreshToken marks oldID revoked with a conditional update
	// (revoked=false guard) and inserts next atomically. If the guard affects no
	// row, nothing is written and ErrConflict is returned.
	RotateRefreshToken(ctx context.Context, oldID string, next *RefreshToken) error
	// RevokeRefreshToken is idempotent; unknown hashes are not an error.
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeRefreshChain(ctx context.Context, chainID string) (int64, error)
	RevokeAccountRefreshTokens(ctx context.Context, accountID string) (int64, error)
}

// Sessions persists device contexts.
type Sessions interface {
	CreateSession(ctx context.Context, session *Session) error
	SessionByID(ctx context.Context, id string) (*Session, error)
	SessionsByAccount(ctx context.Context, accountID string) ([]Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
	// DeleteAccountSessions removes every session of accountID except keepID
	// (an empty keepID removes all of them).
	DeleteAccountSessions(ctx context.Context, accountID, keepID string) (int64, error)
}

// Blacklist persists revoked access tokens.
type Blacklist interface {
	// AddBlacklistEntry is idempotent: a duplicate hash is swallowed.
	AddBlacklistEntry(ctx context.Context, entry *BlacklistEntry) error
	// BlacklistEntryExists ignores entries that expired at or before now.
	BlacklistEntryExists(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	PurgeBlacklist(ctx context.Context, now time.Time) (int64, error)
}

// SignedURLs persists download capabilities.
type SignedURLs interface {
	CreateSignedURL(ctx context.Context, link *SignedURL) error
	SignedURLBySignature(ctx context.Context, signature string) (*SignedURL, error)
	DeleteSignedURL(ctx context.Context, signature string) error
	PurgeSignedURLs(ctx context.Context, now time.Time) (int64, error)
}

// Store is the full persistence port required by the engine.
type Store interface {
	Accounts
	RefreshTokens
	Sessions
	Blacklist
	SignedURLs
}
