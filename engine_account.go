package gatekeeper

import (
	"context"
	"errors"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper/internal/flows"
	"github.com/MrEthical07/gatekeeper/store"
)

// Register creates a password account. Input is validated before any lookup;
// a bound email returns ErrEmailAlreadyInUse. The welcome mail and the optional
// verification code are sent asynchronously.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*store.Account, error) {
	if err := e.validate.StructCtx(ctx, in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	result := e.flows.CreateAccount(ctx, flows.AccountCreateRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     e.config.Account.DefaultRole,
	})

	var err error
	switch result.Failure {
	case flows.AccountFailureNone:
	case flows.AccountFailureDuplicate:
		e.metricInc(MetricAccountDuplicate)
		err = ErrEmailAlreadyInUse
	case flows.AccountFailurePolicy:
		err = result.Err
	case flows.AccountFailureHash, flows.AccountFailureStorage:
		err = unavailable("register", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.emitAudit(ctx, auditEventRegister, false, "", "", err, nil)
		return nil, err
	}

	account := result.Account
	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventRegister, true, account.ID, "", nil, nil)

	if e.config.Account.SendWelcomeMail {
		e.sendMail(account.Email, "Welcome",
			fmt.Sprintf("<p>Hello %s, your account is ready.</p>", html.EscapeString(account.Name)))
	}
	if e.config.EmailVerification.SendOnRegister {
		if err := e.SendEmailVerification(ctx, account.ID); err != nil {
			e.logger.Warn("verification on register failed", zap.String("account_id", account.ID), zap.Error(err))
		}
	}
	return account, nil
}

// Account returns the stored account or ErrAccountNotFound.
func (e *Engine) Account(ctx context.Context, accountID string) (*store.Account, error) {
	account, err := e.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, unavailable("account lookup", err)
	}
	return account, nil
}

// ChangePassword replaces the password after verifying the current one. Every
// refresh token of the account is revoked and every session other than
// sessionID is deleted; the returned pair continues sessionID on a new chain.
func (e *Engine) ChangePassword(ctx context.Context, accountID, sessionID, current, next string) (*TokenPair, error) {
	result := e.flows.ChangePassword(ctx, accountID, current, next)

	var err error
	switch result.Failure {
	case flows.AccountFailureNone:
	case flows.AccountFailureNotFound:
		err = ErrAccountNotFound
	case flows.AccountFailureCredentials:
		err = ErrInvalidCredentials
	case flows.AccountFailurePolicy:
		err = result.Err
	case flows.AccountFailureHash, flows.AccountFailureStorage:
		err = unavailable("change password", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChange, false, accountID, sessionID, err, nil)
		return nil, err
	}

	if _, err := e.store.RevokeAccountRefreshTokens(ctx, accountID); err != nil {
		e.logger.Warn("password change refresh revocation failed", zap.String("account_id", accountID), zap.Error(err))
	}
	if sessionID != "" {
		if _, err := e.sessions.RevokeAllExcept(ctx, accountID, sessionID); err != nil {
			e.logger.Warn("password change session cleanup failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	issued, err := e.flows.IssueForSession(ctx, result.Account, sessionID)
	if err != nil {
		return nil, unavailable("change password", err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, accountID, sessionID, nil, nil)
	return &TokenPair{
		AccessToken:      issued.AccessToken,
		AccessExpiresAt:  issued.AccessExpiresAt,
		RefreshToken:     issued.RefreshToken,
		RefreshExpiresAt: issued.RefreshExpiresAt,
	}, nil
}

// SuspendAccount blocks login, refresh and authentication for accountID, revokes
// its refresh tokens and deletes its sessions. Suspending twice is a no-op.
func (e *Engine) SuspendAccount(ctx context.Context, accountID string) error {
	return e.setSuspended(ctx, accountID, true)
}

// ReinstateAccount lifts a suspension. Revoked credentials stay revoked.
func (e *Engine) ReinstateAccount(ctx context.Context, accountID string) error {
	return e.setSuspended(ctx, accountID, false)
}

func (e *Engine) setSuspended(ctx context.Context, accountID string, suspended bool) error {
	event, metric := auditEventAccountReinstated, MetricAccountReinstated
	if suspended {
		event, metric = auditEventAccountSuspended, MetricAccountSuspended
	}

	result, err := e.flows.SetSuspended(ctx, accountID, suspended)
	if err != nil {
		if errors.Is(err, flows.ErrAccountMissing) {
			err = ErrAccountNotFound
		} else {
			err = unavailable("set suspended", err)
		}
		e.emitAudit(ctx, event, false, accountID, "", err, nil)
		return err
	}
	if !result.Changed {
		return nil
	}

	e.metricInc(metric)
	e.emitAudit(ctx, event, true, accountID, "", nil, func() map[string]string {
		if !suspended {
			return nil
		}
		return map[string]string{
			"refresh_tokens": itoa(result.RefreshTokens),
			"sessions":       itoa(result.Sessions),
		}
	})
	return nil
}
