package gatekeeper

import (
	"context"
	"errors"

	"github.com/MrEthical07/gatekeeper/session"
)

// ListSessions returns the sessions of accountID, most recent activity first.
func (e *Engine) ListSessions(ctx context.Context, accountID string) ([]session.Summary, error) {
	list, err := e.sessions.List(ctx, accountID)
	if err != nil {
		return nil, unavailable("list sessions", err)
	}
	return list, nil
}

// RevokeSession deletes sessionID on behalf of accountID. A session owned by
// another account returns ErrSessionNotOwned and is left untouched.
func (e *Engine) RevokeSession(ctx context.Context, accountID, sessionID string) error {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return unavailable("revoke session", err)
	}
	if sess.AccountID != accountID {
		e.emitAudit(ctx, auditEventSessionRevoked, false, accountID, sessionID, ErrSessionNotOwned, nil)
		return ErrSessionNotOwned
	}

	if err := e.sessions.RevokeOne(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return unavailable("revoke session", err)
	}
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, accountID, sessionID, nil, nil)
	return nil
}

// RevokeOtherSessions deletes every session of accountID except keepSessionID and
// reports how many were removed.
func (e *Engine) RevokeOtherSessions(ctx context.Context, accountID, keepSessionID string) (int64, error) {
	n, err := e.sessions.RevokeAllExcept(ctx, accountID, keepSessionID)
	if err != nil {
		return 0, unavailable("revoke sessions", err)
	}
	for i := int64(0); i < n; i++ {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventSessionRevoked, true, accountID, keepSessionID, nil, func() map[string]string {
		return map[string]string{"scope": "others", "count": itoa(n)}
	})
	return n, nil
}
