package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/gatekeeper/store"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureLookup
	// LoginFailureVerify means the comparison itself failed: no hashing slot
	// before ctx ended, or a stored hash that cannot be parsed.
	LoginFailureVerify
	LoginFailureCredentials
	LoginFailureSuspended
	LoginFailureIssue
)

// IssueResult is a freshly opened session with its token pair.
type IssueResult struct {
	SessionID        string
	ChainID          string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult carries either the issued credentials or failure metadata.
type LoginResult struct {
	Failure  LoginFailureKind
	Err      error
	Account  *store.Account
	Issued   IssueResult
	Rehashed bool
}

// IssueDeps captures session + token issuance shared by every login path.
type IssueDeps struct {
	Tokens     store.RefreshTokens
	Minter     TokenMinter
	HashSecret func(string) string
	NewID      func() string
	// OpenSession may be nil; a failed open is logged and the login continues
	// without a session id.
	OpenSession         func(ctx context.Context, accountID, ip, userAgent string) (string, error)
	ClientIPFromContext func(context.Context) string
	UserAgent           func(context.Context) string
	Now                 func() time.Time
	Warn                Warner
}

// LoginDeps captures password login dependencies.
type LoginDeps struct {
	Accounts       store.Accounts
	VerifyPassword func(ctx context.Context, password, encodedHash string) (bool, error)
	// DummyVerify burns one hash comparison when the account is unknown.
	DummyVerify    func(ctx context.Context, password string)
	NeedsUpgrade   func(encodedHash string) (bool, error)
	HashPassword   func(ctx context.Context, password string) (string, error)
	UpgradeOnLogin bool
	Warn           Warner
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RunLogin verifies a password login and issues a session and token pair.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps, issue IssueDeps) LoginResult {
	email = NormalizeEmail(email)

	account, err := deps.Accounts.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if deps.DummyVerify != nil {
				deps.DummyVerify(ctx, password)
			}
			return LoginResult{Failure: LoginFailureCredentials}
		}
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}

	if !account.HasPassword() {
		if deps.DummyVerify != nil {
			deps.DummyVerify(ctx, password)
		}
		return LoginResult{Failure: LoginFailureCredentials, Account: account}
	}

	ok, err := deps.VerifyPassword(ctx, password, account.PasswordHash)
	if err != nil {
		return LoginResult{Failure: LoginFailureVerify, Err: err, Account: account}
	}
	if !ok {
		return LoginResult{Failure: LoginFailureCredentials, Account: account}
	}

	if account.Suspended {
		return LoginResult{Failure: LoginFailureSuspended, Account: account}
	}

	issued, err := RunIssueSession(ctx, account, issue)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Account: account}
	}

	result := LoginResult{Account: account, Issued: issued}
	if deps.UpgradeOnLogin && deps.NeedsUpgrade != nil && deps.HashPassword != nil {
		result.Rehashed = rehash(ctx, account, password, deps)
	}
	return result
}

func rehash(ctx context.Context, account *store.Account, password string, deps LoginDeps) bool {
	stale, err := deps.NeedsUpgrade(account.PasswordHash)
	if err != nil || !stale {
		return false
	}
	upgraded, err := deps.HashPassword(ctx, password)
	if err != nil {
		deps.Warn.warn("password rehash failed", err)
		return false
	}
	if err := deps.Accounts.SetPasswordHash(ctx, account.ID, upgraded); err != nil {
		deps.Warn.warn("password rehash store failed", err)
		return false
	}
	account.PasswordHash = upgraded
	return true
}

// RunIssueSession opens a session for account and mints a refresh token on a new
// chain plus an access token bound to the session.
func RunIssueSession(ctx context.Context, account *store.Account, deps IssueDeps) (IssueResult, error) {
	var sessionID string
	if deps.OpenSession != nil {
		id, err := deps.OpenSession(ctx, account.ID,
			contextString(deps.ClientIPFromContext, ctx),
			contextString(deps.UserAgent, ctx),
		)
		if err != nil {
			deps.Warn.warn("session open failed", err)
		} else {
			sessionID = id
		}
	}
	return RunIssueForSession(ctx, account, sessionID, deps)
}

// RunIssueForSession mints a token pair on a new chain for an existing session.
func RunIssueForSession(ctx context.Context, account *store.Account, sessionID string, deps IssueDeps) (IssueResult, error) {
	now := nowOr(deps.Now)

	chainID := deps.NewID()
	refresh, err := mintRefresh(account.ID, chainID, sessionID, deps.Minter, deps.HashSecret, deps.NewID, now)
	if err != nil {
		return IssueResult{}, err
	}
	if err := deps.Tokens.CreateRefreshToken(ctx, refresh.row); err != nil {
		return IssueResult{}, err
	}

	access, accessExp, err := deps.Minter.CreateAccess(account.ID, account.Role, sessionID)
	if err != nil {
		return IssueResult{}, err
	}

	return IssueResult{
		SessionID:        sessionID,
		ChainID:          chainID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh.token,
		RefreshExpiresAt: refresh.row.ExpiresAt,
	}, nil
}

type mintedRefresh struct {
	token string
	row   *store.RefreshToken
}

func mintRefresh(accountID, chainID, sessionID string, minter TokenMinter, hash func(string) string, newID func() string, now func() time.Time) (mintedRefresh, error) {
	id := newID()
	token, exp, err := minter.CreateRefresh(accountID, id, sessionID)
	if err != nil {
		return mintedRefresh{}, err
	}
	return mintedRefresh{
		token: token,
		row: &store.RefreshToken{
			ID:        id,
			AccountID: accountID,
			ChainID:   chainID,
			TokenHash: hash(token),
			ExpiresAt: exp,
			CreatedAt: now(),
		},
	}, nil
}
