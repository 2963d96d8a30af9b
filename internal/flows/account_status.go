package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/gatekeeper/store"
)

// AccountStatusDeps captures suspension dependencies.
type AccountStatusDeps struct {
	Accounts store.Accounts
	Tokens   store.RefreshTokens
	Sessions store.Sessions
}

// AccountStatusResult reports a suspension change.
type AccountStatusResult struct {
	Changed       bool
	RefreshTokens int64
	Sessions      int64
}

// ErrAccountMissing is returned when the account id is unknown.
var ErrAccountMissing = errors.New("flows: account missing")

// RunSetSuspended flips the suspension flag. Suspending also revokes every refresh
// token and deletes every session; outstanding access tokens are rejected by the
// status check in RunValidate.
func RunSetSuspended(ctx context.Context, accountID string, suspended bool, deps AccountStatusDeps) (AccountStatusResult, error) {
	account, err := deps.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AccountStatusResult{}, ErrAccountMissing
		}
		return AccountStatusResult{}, err
	}
	if account.Suspended == suspended {
		return AccountStatusResult{}, nil
	}

	if err := deps.Accounts.SetSuspended(ctx, accountID, suspended); err != nil {
		return AccountStatusResult{}, err
	}
	result := AccountStatusResult{Changed: true}
	if !suspended {
		return result, nil
	}

	if result.RefreshTokens, err = deps.Tokens.RevokeAccountRefreshTokens(ctx, accountID); err != nil {
		return result, err
	}
	if result.Sessions, err = deps.Sessions.DeleteAccountSessions(ctx, accountID, ""); err != nil {
		return result, err
	}
	return result, nil
}
