package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/store"
)

// AccountFailureKind classifies registration and password change failures.
type AccountFailureKind int

const (
	AccountFailureNone AccountFailureKind = iota
	AccountFailureDuplicate
	AccountFailurePolicy
	AccountFailureNotFound
	AccountFailureCredentials
	AccountFailureHash
	AccountFailureStorage
)

// AccountCreateRequest is the validated registration input.
type AccountCreateRequest struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AccountResult carries the affected account or failure metadata.
type AccountResult struct {
	Failure AccountFailureKind
	Err     error
	Account *store.Account
}

// AccountDeps captures registration and password change dependencies.
type AccountDeps struct {
	Accounts       store.Accounts
	CheckPolicy    func(password string) error
	HashPassword   func(ctx context.Context, password string) (string, error)
	VerifyPassword func(ctx context.Context, password, encodedHash string) (bool, error)
	NewID          func() string
	Now            func() time.Time
}

// RunCreateAccount registers a password account. The email is normalized and must
// not be bound to another account.
func RunCreateAccount(ctx context.Context, req AccountCreateRequest, deps AccountDeps) AccountResult {
	now := nowOr(deps.Now)
	email := NormalizeEmail(req.Email)

	if err := deps.CheckPolicy(req.Password); err != nil {
		return AccountResult{Failure: AccountFailurePolicy, Err: err}
	}

	_, err := deps.Accounts.AccountByEmail(ctx, email)
	switch {
	case err == nil:
		return AccountResult{Failure: AccountFailureDuplicate}
	case !errors.Is(err, store.ErrNotFound):
		return AccountResult{Failure: AccountFailureStorage, Err: err}
	}

	hash, err := deps.HashPassword(ctx, req.Password)
	if err != nil {
		return AccountResult{Failure: AccountFailureHash, Err: err}
	}

	created := now()
	account := &store.Account{
		ID:           deps.NewID(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if err := deps.Accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return AccountResult{Failure: AccountFailureDuplicate}
		}
		return AccountResult{Failure: AccountFailureStorage, Err: err}
	}
	return AccountResult{Account: account}
}

// RunChangePassword replaces the password of accountID after verifying current.
func RunChangePassword(ctx context.Context, accountID, current, next string, deps AccountDeps) AccountResult {
	account, err := deps.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AccountResult{Failure: AccountFailureNotFound}
		}
		return AccountResult{Failure: AccountFailureStorage, Err: err}
	}
	if !account.HasPassword() {
		return AccountResult{Failure: AccountFailureCredentials, Account: account}
	}

	ok, err := deps.VerifyPassword(ctx, current, account.PasswordHash)
	if err != nil {
		return AccountResult{Failure: AccountFailureHash, Err: err, Account: account}
	}
	if !ok {
		return AccountResult{Failure: AccountFailureCredentials, Account: account}
	}
	if err := deps.CheckPolicy(next); err != nil {
		return AccountResult{Failure: AccountFailurePolicy, Err: err, Account: account}
	}

	hash, err := deps.HashPassword(ctx, next)
	if err != nil {
		return AccountResult{Failure: AccountFailureHash, Err: err, Account: account}
	}
	if err := deps.Accounts.SetPasswordHash(ctx, account.ID, hash); err != nil {
		return AccountResult{Failure: AccountFailureStorage, Err: err, Account: account}
	}
	account.PasswordHash = hash
	return AccountResult{Account: account}
}
