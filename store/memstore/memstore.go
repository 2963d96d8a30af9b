// Package memstore is a process-memory implementation of store.Store.
//
// It is intended for tests and single-node development. All operations take one
// mutex, so conditional updates (refresh rotation, code confirmation, password
// reset) are trivially atomic.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/gatekeeper/store"
)

// Store holds every record in maps guarded by a single mutex. Records are copied on
// the way in and out so callers cannot mutate stored state.
type Store struct {
	mu sync.Mutex

	accounts        map[string]*store.Account
	accountsByEmail map[string]string
	accountsByExtID map[string]string

	refresh       map[string]*store.RefreshToken
	refreshByHash map[string]string

	sessions  map[string]*store.Session
	blacklist map[string]*store.BlacklistEntry
	links     map[string]*store.SignedURL

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts:        make(map[string]*store.Account),
		accountsByEmail: make(map[string]string),
		accountsByExtID: make(map[string]string),
		refresh:         make(map[string]*store.RefreshToken),
		refreshByHash:   make(map[string]string),
		sessions:        make(map[string]*store.Session),
		blacklist:       make(map[string]*store.BlacklistEntry),
		links:           make(map[string]*store.SignedURL),
		now:             time.Now,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneAccount(a *store.Account) *store.Account {
	c := *a
	c.VerificationExpiresAt = cloneTime(a.VerificationExpiresAt)
	c.ResetExpiresAt = cloneTime(a.ResetExpiresAt)
	return &c
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, account *store.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, ok := s.accounts[account.ID]; ok {
		return store.ErrConflict
	}
	if _, ok := s.accountsByEmail[email]; ok {
		return store.ErrConflict
	}
	if account.ExternalID != "" {
		if _, ok := s.accountsByExtID[account.ExternalID]; ok {
			return store.ErrConflict
		}
	}

	c := cloneAccount(account)
	c.Email = email
	s.accounts[c.ID] = c
	s.accountsByEmail[email] = c.ID
	if c.ExternalID != "" {
		s.accountsByExtID[c.ExternalID] = c.ID
	}
	return nil
}

func (s *Store) AccountByID(_ context.Context, id string) (*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *Store) AccountByEmail(_ context.Context, email string) (*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.accountsByEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

func (s *Store) AccountByExternalID(_ context.Context, externalID string) (*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.accountsByExtID[externalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

func (s *Store) updateAccount(id string, fn func(a *store.Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := fn(a); err != nil {
		return err
	}
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetPasswordHash(_ context.Context, id, passwordHash string) error {
	return s.updateAccount(id, func(a *store.Account) error {
		a.PasswordHash = passwordHash
		return nil
	})
}

func (s *Store) SetSuspended(_ context.Context, id string, suspended bool) error {
	return s.updateAccount(id, func(a *store.Account) error {
		a.Suspended = suspended
		return nil
	})
}

func (s *Store) LinkExternalIdentity(_ context.Context, id, externalID string) error {
	return s.updateAccount(id, func(a *store.Account) error {
		if owner, ok := s.accountsByExtID[externalID]; ok && owner != id {
			return store.ErrConflict
		}
		if a.ExternalID != "" && a.ExternalID != externalID {
			delete(s.accountsByExtID, a.ExternalID)
		}
		a.ExternalID = externalID
		a.EmailVerified = true
		s.accountsByExtID[externalID] = id
		return nil
	})
}

func (s *Store) SetVerificationCode(_ context.Context, id, codeHash string, expiresAt time.Time) error {
	return s.updateAccount(id, func(a *store.Account) error {
		a.VerificationCodeHash = codeHash
		a.VerificationExpiresAt = &expiresAt
		return nil
	})
}

func (s *Store) ConfirmEmail(_ context.Context, id, codeHash string) error {
	return s.updateAccount(id, func(a *store.Account) error {
		if a.VerificationCodeHash == "" || a.VerificationCodeHash != codeHash {
			return store.ErrConflict
		}
		a.EmailVerified = true
		a.VerificationCodeHash = ""
		a.VerificationExpiresAt = nil
		return nil
	})
}

func (s *Store) SetPasswordReset(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.updateAccount(id, func(a *store.Account) error {
		a.ResetTokenHash = tokenHash
		a.ResetExpiresAt = &expiresAt
		return nil
	})
}

func (s *Store) CompletePasswordReset(_ context.Context, id, tokenHash, passwordHash string) error {
	return s.updateAccount(id, func(a *store.Account) error {
		if a.ResetTokenHash == "" || a.ResetTokenHash != tokenHash {
			return store.ErrConflict
		}
		a.PasswordHash = passwordHash
		a.ResetTokenHash = ""
		a.ResetExpiresAt = nil
		return nil
	})
}

// Refresh tokens

func (s *Store) CreateRefreshToken(_ context.Context, token *store.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertRefreshLocked(token)
}

func (s *Store) insertRefreshLocked(token *store.RefreshToken) error {
	if _, ok := s.refresh[token.ID]; ok {
		return store.ErrConflict
	}
	if _, ok := s.refreshByHash[token.TokenHash]; ok {
		return store.ErrConflict
	}
	c := *token
	s.refresh[c.ID] = &c
	s.refreshByHash[c.TokenHash] = c.ID
	return nil
}

func (s *Store) RefreshTokenByHash(_ context.Context, tokenHash string) (*store.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.refreshByHash[tokenHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *s.refresh[id]
	return &c, nil
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID string, next *store.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.refresh[oldID]
	if !ok || old.Revoked {
		return store.ErrConflict
	}
	if err := s.insertRefreshLocked(next); err != nil {
		return err
	}
	old.Revoked = true
	return nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.refreshByHash[tokenHash]; ok {
		s.refresh[id].Revoked = true
	}
	return nil
}

func (s *Store) RevokeRefreshChain(_ context.Context, chainID string) (int64, error) {
	return s.revokeWhere(func(t *store.RefreshToken) bool { return t.ChainID == chainID }), nil
}

func (s *Store) RevokeAccountRefreshTokens(_ context.Context, accountID string) (int64, error) {
	return s.revokeWhere(func(t *store.RefreshToken) bool { return t.AccountID == accountID }), nil
}

func (s *Store) revokeWhere(match func(*store.RefreshToken) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.refresh {
		if !t.Revoked && match(t) {
			t.Revoked = true
			n++
		}
	}
	return n
}

// Sessions

func (s *Store) CreateSession(_ context.Context, session *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return store.ErrConflict
	}
	c := *session
	s.sessions[c.ID] = &c
	return nil
}

func (s *Store) SessionByID(_ context.Context, id string) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *sess
	return &c, nil
}

func (s *Store) SessionsByAccount(_ context.Context, accountID string) ([]store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Session, 0, 4)
	for _, sess := range s.sessions {
		if sess.AccountID == accountID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out, nil
}

func (s *Store) TouchSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	if at.After(sess.LastActivityAt) {
		sess.LastActivityAt = at
	}
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteAccountSessions(_ context.Context, accountID, keepID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if sess.AccountID == accountID && id != keepID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Blacklist

func (s *Store) AddBlacklistEntry(_ context.Context, entry *store.BlacklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blacklist[entry.TokenHash]; ok {
		return nil
	}
	c := *entry
	s.blacklist[c.TokenHash] = &c
	return nil
}

func (s *Store) BlacklistEntryExists(_ context.Context, tokenHash string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.blacklist[tokenHash]
	return ok && e.ExpiresAt.After(now), nil
}

func (s *Store) PurgeBlacklist(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for h, e := range s.blacklist {
		if !e.ExpiresAt.After(now) {
			delete(s.blacklist, h)
			n++
		}
	}
	return n, nil
}

// Signed URLs

func (s *Store) CreateSignedURL(_ context.Context, link *store.SignedURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[link.Signature]; ok {
		return store.ErrConflict
	}
	c := *link
	s.links[c.Signature] = &c
	return nil
}

func (s *Store) SignedURLBySignature(_ context.Context, signature string) (*store.SignedURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[signature]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (s *Store) DeleteSignedURL(_ context.Context, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.links, signature)
	return nil
}

func (s *Store) PurgeSignedURLs(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for sig, l := range s.links {
		if !l.ExpiresAt.After(now) {
			delete(s.links, sig)
			n++
		}
	}
	return n, nil
}
