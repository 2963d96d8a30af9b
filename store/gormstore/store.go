// Package gormstore implements store.Store on PostgreSQL through gorm.
//
// Conditional updates carry their guard in the WHERE clause and inspect
// RowsAffected, so rotation, email confirmation and password reset are
// compare-and-swap operations at the database. Schema migrations are embedded and
// applied with goose ([Migrate]).
package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MrEthical07/gatekeeper/store"
)

// Store is a gorm-backed store.Store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps db. The handle should be opened with TranslateError so unique
// violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrConflict
	default:
		return err
	}
}

// guarded reports ErrConflict when a conditional update missed an existing row and
// ErrNotFound when the row does not exist at all.
func (s *Store) guarded(ctx context.Context, res *gorm.DB, model any, id string) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

// Accounts

func (s *Store) CreateAccount(ctx context.Context, account *store.Account) error {
	rec := toAccountModel(account)
	rec.Email = strings.ToLower(rec.Email)
	return translate(s.db.WithContext(ctx).Create(&rec).Error)
}

func (s *Store) accountWhere(ctx context.Context, query string, arg any) (*store.Account, error) {
	var rec accountModel
	if err := s.db.WithContext(ctx).Where(query, arg).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toStore(), nil
}

func (s *Store) AccountByID(ctx context.Context, id string) (*store.Account, error) {
	return s.accountWhere(ctx, "id = ?", id)
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*store.Account, error) {
	return s.accountWhere(ctx, "email = ?", strings.ToLower(email))
}

func (s *Store) AccountByExternalID(ctx context.Context, externalID string) (*store.Account, error) {
	return s.accountWhere(ctx, "external_id = ?", externalID)
}

func (s *Store) updateAccount(ctx context.Context, id string, values map[string]any) error {
	values["updated_at"] = s.now()
	res := s.db.WithContext(ctx).Model(&accountModel{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	return s.updateAccount(ctx, id, map[string]any{"password_hash": passwordHash})
}

func (s *Store) SetSuspended(ctx context.Context, id string, suspended bool) error {
	return s.updateAccount(ctx, id, map[string]any{"suspended": suspended})
}

func (s *Store) LinkExternalIdentity(ctx context.Context, id, externalID string) error {
	return s.updateAccount(ctx, id, map[string]any{
		"external_id":    externalID,
		"email_verified": true,
	})
}

func (s *Store) SetVerificationCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	return s.updateAccount(ctx, id, map[string]any{
		"verification_code_hash":  codeHash,
		"verification_expires_at": expiresAt,
	})
}

func (s *Store) ConfirmEmail(ctx context.Context, id, codeHash string) error {
	res := s.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("id = ?", id).
		Where("verification_code_hash <> '' AND verification_code_hash = ?", codeHash).
		Updates(map[string]any{
			"email_verified":          true,
			"verification_code_hash":  "",
			"verification_expires_at": nil,
			"updated_at":              s.now(),
		})
	return s.guarded(ctx, res, &accountModel{}, id)
}

func (s *Store) SetPasswordReset(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.updateAccount(ctx, id, map[string]any{
		"reset_token_hash": tokenHash,
		"reset_expires_at": expiresAt,
	})
}

func (s *Store) CompletePasswordReset(ctx context.Context, id, tokenHash, passwordHash string) error {
	res := s.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("id = ?", id).
		Where("reset_token_hash <> '' AND reset_token_hash = ?", tokenHash).
		Updates(map[string]any{
			"password_hash":    passwordHash,
			"reset_token_hash": "",
			"reset_expires_at": nil,
			"updated_at":       s.now(),
		})
	return s.guarded(ctx, res, &accountModel{}, id)
}

// Refresh tokens

func (s *Store) CreateRefreshToken(ctx context.Context, token *store.RefreshToken) error {
	rec := toRefreshModel(token)
	return translate(s.db.WithContext(ctx).Create(&rec).Error)
}

func (s *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error) {
	var rec refreshTokenModel
	if err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toStore(), nil
}

func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, next *store.RefreshToken) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&refreshTokenModel{}).
			Where("id = ? AND revoked = ?", oldID, false).
			Update("revoked", true)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected != 1 {
			return store.ErrConflict
		}
		rec := toRefreshModel(next)
		return translate(tx.Create(&rec).Error)
	})
}

func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return s.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		Update("revoked", true).Error
}

func (s *Store) RevokeRefreshChain(ctx context.Context, chainID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("chain_id = ? AND revoked = ?", chainID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

func (s *Store) RevokeAccountRefreshTokens(ctx context.Context, accountID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("account_id = ? AND revoked = ?", accountID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, session *store.Session) error {
	rec := sessionModel{
		ID:             session.ID,
		AccountID:      session.AccountID,
		Device:         session.Device,
		IP:             session.IP,
		UserAgent:      session.UserAgent,
		CreatedAt:      session.CreatedAt,
		LastActivityAt: session.LastActivityAt,
	}
	return translate(s.db.WithContext(ctx).Create(&rec).Error)
}

func (s *Store) SessionByID(ctx context.Context, id string) (*store.Session, error) {
	var rec sessionModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	out := rec.toStore()
	return &out, nil
}

func (s *Store) SessionsByAccount(ctx context.Context, accountID string) ([]store.Session, error) {
	var rows []sessionModel
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("last_activity_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]store.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toStore())
	}
	return out, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("id = ?", id).
		Update("last_activity_at", gorm.Expr("GREATEST(last_activity_at, ?)", at))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&sessionModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccountSessions(ctx context.Context, accountID, keepID string) (int64, error) {
	q := s.db.WithContext(ctx).Where("account_id = ?", accountID)
	if keepID != "" {
		q = q.Where("id <> ?", keepID)
	}
	res := q.Delete(&sessionModel{})
	return res.RowsAffected, res.Error
}

// Blacklist

func (s *Store) AddBlacklistEntry(ctx context.Context, entry *store.BlacklistEntry) error {
	rec := blacklistModel{
		TokenHash: entry.TokenHash,
		ExpiresAt: entry.ExpiresAt,
		CreatedAt: entry.CreatedAt,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_hash"}}, DoNothing: true}).
		Create(&rec).Error
}

func (s *Store) BlacklistEntryExists(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&blacklistModel{}).
		Where("token_hash = ? AND expires_at > ?", tokenHash, now).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) PurgeBlacklist(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&blacklistModel{})
	return res.RowsAffected, res.Error
}

// Signed URLs

func (s *Store) CreateSignedURL(ctx context.Context, link *store.SignedURL) error {
	rec := signedURLModel{
		Signature: link.Signature,
		FilePath:  link.FilePath,
		FileType:  link.FileType,
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&rec).Error)
}

func (s *Store) SignedURLBySignature(ctx context.Context, signature string) (*store.SignedURL, error) {
	var rec signedURLModel
	if err := s.db.WithContext(ctx).Where("signature = ?", signature).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &store.SignedURL{
		Signature: rec.Signature,
		FilePath:  rec.FilePath,
		FileType:  rec.FileType,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Store) DeleteSignedURL(ctx context.Context, signature string) error {
	return s.db.WithContext(ctx).Where("signature = ?", signature).Delete(&signedURLModel{}).Error
}

func (s *Store) PurgeSignedURLs(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&signedURLModel{})
	return res.RowsAffected, res.Error
}
