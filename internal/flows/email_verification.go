package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/store"
)

// VerificationFailureKind classifies email verification failures.
type VerificationFailureKind int

const (
	VerificationFailureNone VerificationFailureKind = iota
	VerificationFailureNotFound
	VerificationFailureAlreadyVerified
	VerificationFailureInvalid
	VerificationFailureExpired
	VerificationFailureGenerate
	VerificationFailureStorage
)

// VerificationResult carries the account and, on request, the plaintext code to
// deliver. The code is never persisted.
type VerificationResult struct {
	Failure VerificationFailureKind
	Err     error
	Account *store.Account
	Code    string
}

// EmailVerificationDeps captures verification dependencies.
type EmailVerificationDeps struct {
	Accounts          store.Accounts
	CodeTTL           time.Duration
	OTPDigits         int
	NewOTP            func(digits int) (string, error)
	HashSecret        func(string) string
	ConstantTimeEqual func(a, b string) bool
	Now               func() time.Time
}

// RunRequestEmailVerification stores the hash of a fresh code, replacing any
// pending one.
func RunRequestEmailVerification(ctx context.Context, accountID string, deps EmailVerificationDeps) VerificationResult {
	now := nowOr(deps.Now)

	account, err := deps.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VerificationResult{Failure: VerificationFailureNotFound}
		}
		return VerificationResult{Failure: VerificationFailureStorage, Err: err}
	}
	if account.EmailVerified {
		return VerificationResult{Failure: VerificationFailureAlreadyVerified, Account: account}
	}

	code, err := deps.NewOTP(deps.OTPDigits)
	if err != nil {
		return VerificationResult{Failure: VerificationFailureGenerate, Err: err, Account: account}
	}
	if err := deps.Accounts.SetVerificationCode(ctx, account.ID, deps.HashSecret(code), now().Add(deps.CodeTTL)); err != nil {
		return VerificationResult{Failure: VerificationFailureStorage, Err: err, Account: account}
	}
	return VerificationResult{Account: account, Code: code}
}

// RunConfirmEmailVerification consumes the pending code. The conditional update
// makes a code single-use even under concurrent confirmations.
func RunConfirmEmailVerification(ctx context.Context, accountID, code string, deps EmailVerificationDeps) VerificationResult {
	now := nowOr(deps.Now)

	account, err := deps.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VerificationResult{Failure: VerificationFailureNotFound}
		}
		return VerificationResult{Failure: VerificationFailureStorage, Err: err}
	}
	if account.VerificationCodeHash == "" || account.VerificationExpiresAt == nil {
		return VerificationResult{Failure: VerificationFailureInvalid, Account: account}
	}

	hash := deps.HashSecret(code)
	if !deps.ConstantTimeEqual(hash, account.VerificationCodeHash) {
		return VerificationResult{Failure: VerificationFailureInvalid, Account: account}
	}
	if !now().Before(*account.VerificationExpiresAt) {
		return VerificationResult{Failure: VerificationFailureExpired, Account: account}
	}

	if err := deps.Accounts.ConfirmEmail(ctx, account.ID, hash); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return VerificationResult{Failure: VerificationFailureInvalid, Account: account}
		}
		return VerificationResult{Failure: VerificationFailureStorage, Err: err, Account: account}
	}
	account.EmailVerified = true
	account.VerificationCodeHash = ""
	account.VerificationExpiresAt = nil
	return VerificationResult{Account: account}
}
