package gatekeeper

import (
	"context"
	"io"
	"time"

	"github.com/MrEthical07/gatekeeper/federation"
)

// AccountStatus is the lifecycle state reported by Authenticate.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

// TokenPair is an access token with the refresh token that renews it.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResult is returned by Login and LoginWithExternalIdentity. SessionID is
// empty when the session registry was unavailable at login time.
type LoginResult struct {
	TokenPair
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	// Created is set when an external login created a new account.
	Created bool `json:"created,omitempty"`
}

// AuthResult is the identity behind a valid access token.
type AuthResult struct {
	AccountID     string        `json:"account_id"`
	Email         string        `json:"email"`
	Role          string        `json:"role"`
	Status        AccountStatus `json:"status"`
	EmailVerified bool          `json:"email_verified"`
	SessionID     string        `json:"session_id,omitempty"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

// RegisterInput is validated with go-playground/validator before any lookup.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=128"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// DownloadLink is a granted signed download capability.
type DownloadLink struct {
	Token     string    `json:"token"`
	Signature string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DownloadTarget is what a valid link resolves to.
type DownloadTarget struct {
	FilePath  string    `json:"file_path"`
	FileType  string    `json:"file_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Download is an opened file behind a signed link. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
	// Filename is the sanitized name to present to the client. It is never used
	// to locate the file.
	Filename string
}

// Mailer delivers transactional email. Delivery failures are logged and never
// fail the calling operation.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ExternalVerifier validates identity provider ID tokens. *federation.Verifier
// implements it.
type ExternalVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*federation.Identity, error)
}
