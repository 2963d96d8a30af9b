package gatekeeper

import (
	"context"
	"fmt"

	"github.com/MrEthical07/gatekeeper/internal/flows"
)

// SendEmailVerification stores a fresh verification code for accountID and
// mails it. A verified account is a no-op.
func (e *Engine) SendEmailVerification(ctx context.Context, accountID string) error {
	result := e.flows.RequestEmailVerification(ctx, accountID)

	var err error
	switch result.Failure {
	case flows.VerificationFailureNone:
	case flows.VerificationFailureAlreadyVerified:
		return nil
	case flows.VerificationFailureNotFound:
		err = ErrAccountNotFound
	case flows.VerificationFailureGenerate, flows.VerificationFailureStorage:
		err = unavailable("email verification", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.emitAudit(ctx, auditEventVerificationRequest, false, accountID, "", err, nil)
		return err
	}

	e.metricInc(MetricEmailVerificationRequest)
	e.emitAudit(ctx, auditEventVerificationRequest, true, accountID, "", nil, nil)
	e.sendMail(result.Account.Email, "Verify your email", fmt.Sprintf(
		"<p>Your verification code is <strong>%s</strong>. It expires in %s.</p>",
		result.Code, e.config.EmailVerification.CodeTTL,
	))
	return nil
}

// ConfirmEmailVerification consumes code and marks the email verified. A wrong
// or missing code returns ErrVerificationCodeInvalid; a stale one
// ErrVerificationCodeExpired.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, accountID, code string) error {
	result := e.flows.ConfirmEmailVerification(ctx, accountID, code)

	var err error
	switch result.Failure {
	case flows.VerificationFailureNone:
	case flows.VerificationFailureNotFound:
		err = ErrAccountNotFound
	case flows.VerificationFailureInvalid:
		err = ErrVerificationCodeInvalid
	case flows.VerificationFailureExpired:
		err = ErrVerificationCodeExpired
	case flows.VerificationFailureStorage:
		err = unavailable("confirm email", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, accountID, "", err, nil)
		return err
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, accountID, "", nil, nil)
	return nil
}
