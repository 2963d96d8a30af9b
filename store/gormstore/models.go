package gormstore

import (
	"time"

	"github.com/MrEthical07/gatekeeper/store"
)

type accountModel struct {
	ID                    string     `gorm:"column:id;primaryKey"`
	Name                  string     `gorm:"column:name"`
	Email                 string     `gorm:"column:email"`
	PasswordHash          string     `gorm:"column:password_hash"`
	ExternalID            *string    `gorm:"column:external_id"`
	Role                  string     `gorm:"column:role"`
	Suspended             bool       `gorm:"column:suspended"`
	EmailVerified         bool       `gorm:"column:email_verified"`
	VerificationCodeHash  string     `gorm:"column:verification_code_hash"`
	VerificationExpiresAt *time.Time `gorm:"column:verification_expires_at"`
	ResetTokenHash        string     `gorm:"column:reset_token_hash"`
	ResetExpiresAt        *time.Time `gorm:"column:reset_expires_at"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type refreshTokenModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	AccountID string    `gorm:"column:account_id"`
	ChainID   string    `gorm:"column:chain_id"`
	TokenHash string    `gorm:"column:token_hash"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	Revoked   bool      `gorm:"column:revoked"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

type sessionModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	AccountID      string    `gorm:"column:account_id"`
	Device         string    `gorm:"column:device"`
	IP             string    `gorm:"column:ip"`
	UserAgent      string    `gorm:"column:user_agent"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	LastActivityAt time.Time `gorm:"column:last_activity_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type blacklistModel struct {
	TokenHash string    `gorm:"column:token_hash;primaryKey"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (blacklistModel) TableName() string { return "blacklisted_tokens" }

type signedURLModel struct {
	Signature string    `gorm:"column:signature;primaryKey"`
	FilePath  string    `gorm:"column:file_path"`
	FileType  string    `gorm:"column:file_type"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (signedURLModel) TableName() string { return "signed_urls" }

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func toAccountModel(a *store.Account) accountModel {
	return accountModel{
		ID:                    a.ID,
		Name:                  a.Name,
		Email:                 a.Email,
		PasswordHash:          a.PasswordHash,
		ExternalID:            nullableString(a.ExternalID),
		Role:                  a.Role,
		Suspended:             a.Suspended,
		EmailVerified:         a.EmailVerified,
		VerificationCodeHash:  a.VerificationCodeHash,
		VerificationExpiresAt: a.VerificationExpiresAt,
		ResetTokenHash:        a.ResetTokenHash,
		ResetExpiresAt:        a.ResetExpiresAt,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

func (m accountModel) toStore() *store.Account {
	return &store.Account{
		ID:                    m.ID,
		Name:                  m.Name,
		Email:                 m.Email,
		PasswordHash:          m.PasswordHash,
		ExternalID:            derefString(m.ExternalID),
		Role:                  m.Role,
		Suspended:             m.Suspended,
		EmailVerified:         m.EmailVerified,
		VerificationCodeHash:  m.VerificationCodeHash,
		VerificationExpiresAt: m.VerificationExpiresAt,
		ResetTokenHash:        m.ResetTokenHash,
		ResetExpiresAt:        m.ResetExpiresAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toRefreshModel(t *store.RefreshToken) refreshTokenModel {
	return refreshTokenModel{
		ID:        t.ID,
		AccountID: t.AccountID,
		ChainID:   t.ChainID,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		Revoked:   t.Revoked,
		CreatedAt: t.CreatedAt,
	}
}

func (m refreshTokenModel) toStore() *store.RefreshToken {
	return &store.RefreshToken{
		ID:        m.ID,
		AccountID: m.AccountID,
		ChainID:   m.ChainID,
		TokenHash: m.TokenHash,
		ExpiresAt: m.ExpiresAt,
		Revoked:   m.Revoked,
		CreatedAt: m.CreatedAt,
	}
}

func (m sessionModel) toStore() store.Session {
	return store.Session{
		ID:             m.ID,
		AccountID:      m.AccountID,
		Device:         m.Device,
		IP:             m.IP,
		UserAgent:      m.UserAgent,
		CreatedAt:      m.CreatedAt,
		LastActivityAt: m.LastActivityAt,
	}
}
