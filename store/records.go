package store

import "time"

// Account is the identity record.
type Account struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	ExternalID    string
	Role          string
	Suspended     bool
	EmailVerified bool

	VerificationCodeHash  string
	VerificationExpiresAt *time.Time

	ResetTokenHash string
	ResetExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can log in with a local password.
func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}

// RefreshToken is one link of a rotation chain. TokenHash is the SHA-256 of the
// signed token string handed to the client.
type RefreshToken struct {
	ID        string
	AccountID string
	ChainID   string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Live reports whether the row can still be rotated at now.
func (t *RefreshToken) Live(now time.Time) bool {
	return t != nil && !t.Revoked && now.Before(t.ExpiresAt)
}

// Session is one logged-in device context.
type Session struct {
	ID             string
	AccountID      string
	Device         string
	IP             string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// BlacklistEntry records an access token invalidated before its own expiry.
type BlacklistEntry struct {
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SignedURL is a persisted download capability.
type SignedURL struct {
	Signature string
	FilePath  string
	FileType  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
