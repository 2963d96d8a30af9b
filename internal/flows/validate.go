package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/gatekeeper/jwt"
	"github.com/MrEthical07/gatekeeper/store"
)

// ValidateFailureKind classifies access token failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureRevoked
	ValidateFailureLedger
	ValidateFailureExpired
	ValidateFailureMalformed
	ValidateFailureAccountMissing
	ValidateFailureAccountLookup
	ValidateFailureSuspended
)

// ValidateResult returns either claims and account or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
	Account *store.Account
}

// ValidateDeps captures access token validation dependencies.
type ValidateDeps struct {
	ParseAccess func(string) (*jwt.Claims, error)
	// IsRevoked consults the revocation ledger by token hash.
	IsRevoked  func(ctx context.Context, tokenHash string) (bool, error)
	HashSecret func(string) string
	Accounts   store.Accounts
}

// RunValidate checks the revocation ledger, then the signature and expiry, then
// the owning account's status. The ledger runs first so a revoked token is
// reported as revoked even once it has also expired.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	if tokenStr == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}

	revoked, err := deps.IsRevoked(ctx, deps.HashSecret(tokenStr))
	if err != nil {
		return ValidateResult{Failure: ValidateFailureLedger, Err: err}
	}
	if revoked {
		return ValidateResult{Failure: ValidateFailureRevoked}
	}

	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		if jwt.IsExpired(err) {
			return ValidateResult{Failure: ValidateFailureExpired, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureMalformed, Err: err}
	}

	account, err := deps.Accounts.AccountByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ValidateResult{Failure: ValidateFailureAccountMissing, Claims: claims}
		}
		return ValidateResult{Failure: ValidateFailureAccountLookup, Err: err, Claims: claims}
	}
	if account.Suspended {
		return ValidateResult{Failure: ValidateFailureSuspended, Claims: claims, Account: account}
	}

	return ValidateResult{Claims: claims, Account: account}
}
