package gatekeeper

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/gatekeeper/federation"
	"github.com/MrEthical07/gatekeeper/internal/flows"
	"github.com/MrEthical07/gatekeeper/store"
)

// LoginWithExternalIdentity signs in with an identity provider ID token. The
// account is resolved by provider subject, then by verified email (linking the
// subject to it), and is otherwise created without a local password.
func (e *Engine) LoginWithExternalIdentity(ctx context.Context, idToken string) (*LoginResult, error) {
	if e.external == nil {
		return nil, ErrExternalIdentityDisabled
	}

	account, created, err := e.resolveExternalAccount(ctx, idToken)
	if err == nil && account.Suspended {
		err = ErrAccountSuspended
	}
	if err != nil {
		var accountID string
		if account != nil {
			accountID = account.ID
		}
		e.metricInc(MetricExternalLoginFailure)
		e.emitAudit(ctx, auditEventExternalLogin, false, accountID, "", err, nil)
		return nil, err
	}

	issued, err := e.flows.IssueSession(ctx, account)
	if err != nil {
		err = unavailable("external login", err)
		e.metricInc(MetricExternalLoginFailure)
		e.emitAudit(ctx, auditEventExternalLogin, false, account.ID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricExternalLoginSuccess)
	if created {
		e.metricInc(MetricAccountCreated)
	}
	if issued.SessionID != "" {
		e.metricInc(MetricSessionCreated)
	}
	e.emitAudit(ctx, auditEventExternalLogin, true, account.ID, issued.SessionID, nil, func() map[string]string {
		if created {
			return map[string]string{"created": "true"}
		}
		return nil
	})
	return loginResult(account, issued, created), nil
}

func (e *Engine) resolveExternalAccount(ctx context.Context, idToken string) (*store.Account, bool, error) {
	identity, err := e.external.Verify(ctx, idToken)
	if err != nil {
		switch {
		case errors.Is(err, federation.ErrEmailUnverified):
			return nil, false, ErrExternalIdentityUnverified
		case errors.Is(err, federation.ErrUnavailable):
			return nil, false, unavailable("external identity", err)
		default:
			return nil, false, ErrExternalIdentityRejected
		}
	}

	account, err := e.store.AccountByExternalID(ctx, identity.Subject)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, unavailable("external identity", err)
	}

	email := flows.NormalizeEmail(identity.Email)
	account, err = e.store.AccountByEmail(ctx, email)
	switch {
	case err == nil:
		if account.ExternalID != "" && account.ExternalID != identity.Subject {
			return account, false, ErrExternalIdentityRejected
		}
		if err := e.store.LinkExternalIdentity(ctx, account.ID, identity.Subject); err != nil {
			return account, false, unavailable("link external identity", err)
		}
		account.ExternalID = identity.Subject
		account.EmailVerified = true
		return account, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, unavailable("external identity", err)
	}

	now := e.now()
	account = &store.Account{
		ID:            uuid.NewString(),
		Name:          identity.Name,
		Email:         email,
		ExternalID:    identity.Subject,
		Role:          e.config.Account.DefaultRole,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// A concurrent login for the same subject created it first.
			existing, lookupErr := e.store.AccountByExternalID(ctx, identity.Subject)
			if lookupErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, unavailable("create external account", err)
	}
	e.emitAudit(ctx, auditEventRegister, true, account.ID, "", nil, func() map[string]string {
		return map[string]string{"source": "external"}
	})
	return account, true, nil
}
