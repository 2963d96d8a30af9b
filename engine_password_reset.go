package gatekeeper

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper/internal/flows"
)

// RequestPasswordReset mails a reset token when email belongs to an account. It
// returns nil in every case so callers cannot probe which emails exist.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	result := e.flows.RequestPasswordReset(ctx, email)
	e.metricInc(MetricPasswordResetRequest)

	switch result.Failure {
	case flows.PasswordResetFailureNone:
	case flows.PasswordResetFailureNoAccount:
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", "", ErrAccountNotFound, nil)
		return nil
	default:
		e.logger.Warn("password reset request failed", zap.Error(result.Err))
		var accountID string
		if result.Account != nil {
			accountID = result.Account.ID
		}
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, accountID, "", unavailable("password reset", result.Err), nil)
		return nil
	}

	e.emitAudit(ctx, auditEventPasswordResetRequest, true, result.Account.ID, "", nil, nil)
	e.sendMail(result.Account.Email, "Reset your password", resetBody(e.config.PasswordReset, result.Token))
	return nil
}

func resetBody(cfg PasswordResetConfig, token string) string {
	if cfg.LinkBase != "" {
		link := html.EscapeString(cfg.LinkBase + token)
		return fmt.Sprintf(`<p>Reset your password: <a href="%s">%s</a>. The link expires in %s.</p>`, link, link, cfg.TokenTTL)
	}
	return fmt.Sprintf("<p>Your password reset token is <code>%s</code>. It expires in %s.</p>", token, cfg.TokenTTL)
}

// ResetPassword consumes a reset token and sets newPassword. On success every
// refresh token of the account is revoked and every session deleted.
func (e *Engine) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	result := e.flows.ResetPassword(ctx, email, token, newPassword)

	var accountID string
	if result.Account != nil {
		accountID = result.Account.ID
	}

	var err error
	switch result.Failure {
	case flows.PasswordResetFailureNone:
	case flows.PasswordResetFailureInvalid, flows.PasswordResetFailureNoAccount:
		err = ErrPasswordResetInvalid
	case flows.PasswordResetFailureExpired:
		err = ErrPasswordResetExpired
	case flows.PasswordResetFailurePolicy:
		err = result.Err
	case flows.PasswordResetFailureHash, flows.PasswordResetFailureStorage, flows.PasswordResetFailureGenerate:
		err = unavailable("reset password", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, accountID, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, accountID, "", nil, func() map[string]string {
		return map[string]string{
			"refresh_tokens": itoa(result.Revoked),
			"sessions":       itoa(result.Sessions),
		}
	})
	return nil
}
