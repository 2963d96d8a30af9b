package gatekeeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper/filestore"
	"github.com/MrEthical07/gatekeeper/internal"
	internalaudit "github.com/MrEthical07/gatekeeper/internal/audit"
	"github.com/MrEthical07/gatekeeper/internal/blacklist"
	"github.com/MrEthical07/gatekeeper/internal/flows"
	"github.com/MrEthical07/gatekeeper/internal/rate"
	"github.com/MrEthical07/gatekeeper/jwt"
	"github.com/MrEthical07/gatekeeper/password"
	"github.com/MrEthical07/gatekeeper/session"
	"github.com/MrEthical07/gatekeeper/store"
	"github.com/MrEthical07/gatekeeper/waf"
)

// mailTimeout bounds one asynchronous delivery.
const mailTimeout = 30 * time.Second

// Engine is the credential core. Build one with New().WithStore(...).Build(); an
// Engine is safe for concurrent use.
type Engine struct {
	config Config
	store  store.Store
	flows  flows.Service

	jwt       *jwt.Manager
	passwords *password.Pool
	policy    password.Policy
	dummyHash string

	sessions *session.Registry
	ledger   *blacklist.Ledger
	limiter  *rate.Limiter
	memRate  *rate.MemoryStore
	scanner  *waf.Scanner
	validate *validator.Validate

	mailer   Mailer
	files    filestore.Source
	external ExternalVerifier

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *zap.Logger
	clock   func() time.Time

	// bg tracks session touches and mail deliveries so Close can wait for them.
	bg sync.WaitGroup
}

// Close waits for background work and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.bg.Wait()
	if e.audit != nil {
		e.audit.Close()
	}
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

/*
====================================
LOGIN
====================================
*/

// Login verifies email and password and issues a session and token pair.
// Unknown email, external-only account and wrong password all return
// ErrInvalidCredentials; a suspended account returns ErrAccountSuspended before
// any token is minted.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result := e.flows.Login(ctx, email, password)

	var accountID string
	if result.Account != nil {
		accountID = result.Account.ID
	}

	var err error
	switch result.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureCredentials:
		err = ErrInvalidCredentials
	case flows.LoginFailureSuspended:
		err = ErrAccountSuspended
	case flows.LoginFailureLookup, flows.LoginFailureVerify, flows.LoginFailureIssue:
		err = unavailable("login", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, accountID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	if result.Issued.SessionID != "" {
		e.metricInc(MetricSessionCreated)
	}
	if result.Rehashed {
		e.metricInc(MetricPasswordRehashed)
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, accountID, result.Issued.SessionID, nil, nil)

	return loginResult(result.Account, result.Issued, false), nil
}

func loginResult(account *store.Account, issued flows.IssueResult, created bool) *LoginResult {
	return &LoginResult{
		TokenPair: TokenPair{
			AccessToken:      issued.AccessToken,
			AccessExpiresAt:  issued.AccessExpiresAt,
			RefreshToken:     issued.RefreshToken,
			RefreshExpiresAt: issued.RefreshExpiresAt,
		},
		AccountID: account.ID,
		Role:      account.Role,
		SessionID: issued.SessionID,
		Created:   created,
	}
}

// IssueAccessToken signs an access token. sessionID may be empty.
func (e *Engine) IssueAccessToken(accountID, role, sessionID string) (string, time.Time, error) {
	return e.jwt.CreateAccess(accountID, role, sessionID)
}

/*
====================================
REFRESH
====================================
*/

// Refresh rotates refreshToken. The presented token is revoked and a new token
// pair is returned; of several concurrent calls with the same token exactly one
// succeeds and the others get ErrTokenRevoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrTokenMissing
	}
	result := e.flows.Refresh(ctx, refreshToken)

	var err error
	switch result.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureExpired, flows.RefreshFailureRowExpired:
		err = ErrTokenExpired
	case flows.RefreshFailureMalformed, flows.RefreshFailureOwnerMismatch, flows.RefreshFailureAccountMissing:
		err = ErrTokenMalformed
	case flows.RefreshFailureUnknown:
		err = ErrTokenRevoked
	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, result.AccountID, result.SessionID, ErrTokenRevoked, func() map[string]string {
			return map[string]string{
				"chain_id":      result.ChainID,
				"chain_revoked": itoa(result.ChainRevoked),
			}
		})
		err = ErrTokenRevoked
	case flows.RefreshFailureRaceLost:
		e.metricInc(MetricRefreshRaceLost)
		err = ErrTokenRevoked
	case flows.RefreshFailureSuspended:
		err = ErrAccountSuspended
	case flows.RefreshFailureStorage, flows.RefreshFailureIssue:
		err = unavailable("refresh", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, result.AccountID, result.SessionID, err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, result.AccountID, result.SessionID, nil, nil)
	return &TokenPair{
		AccessToken:      result.AccessToken,
		AccessExpiresAt:  result.AccessExpiresAt,
		RefreshToken:     result.RefreshToken,
		RefreshExpiresAt: result.RefreshExpiresAt,
	}, nil
}

// RevokeRefreshToken revokes one refresh token. Unknown or already revoked
// tokens are not an error.
func (e *Engine) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := e.store.RevokeRefreshToken(ctx, internal.HashSecret(refreshToken)); err != nil {
		return unavailable("revoke refresh token", err)
	}
	return nil
}

// RevokeAllRefreshTokens revokes every refresh token of accountID and reports how
// many were live.
func (e *Engine) RevokeAllRefreshTokens(ctx context.Context, accountID string) (int64, error) {
	n, err := e.store.RevokeAccountRefreshTokens(ctx, accountID)
	if err != nil {
		return 0, unavailable("revoke refresh tokens", err)
	}
	return n, nil
}

/*
====================================
AUTHENTICATE
====================================
*/

// Authenticate validates a bearer access token. The revocation ledger is
// consulted first and fails closed: a ledger error returns ErrServiceUnavailable.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	result := e.flows.Validate(ctx, accessToken)

	var err error
	switch result.Failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureMissing:
		err = ErrTokenMissing
	case flows.ValidateFailureRevoked:
		e.metricInc(MetricBlacklistHit)
		err = ErrTokenRevoked
	case flows.ValidateFailureExpired:
		err = ErrTokenExpired
	case flows.ValidateFailureMalformed, flows.ValidateFailureAccountMissing:
		err = ErrTokenMalformed
	case flows.ValidateFailureSuspended:
		err = ErrAccountSuspended
	case flows.ValidateFailureLedger, flows.ValidateFailureAccountLookup:
		err = unavailable("authenticate", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}
	e.metricInc(MetricAuthenticateSuccess)

	claims, account := result.Claims, result.Account
	if claims.SessionID != "" {
		e.touchSession(claims.SessionID)
	}

	return &AuthResult{
		AccountID:     account.ID,
		Email:         account.Email,
		Role:          account.Role,
		Status:        AccountActive,
		EmailVerified: account.EmailVerified,
		SessionID:     claims.SessionID,
		ExpiresAt:     claims.Expiry(),
	}, nil
}

func (e *Engine) touchSession(sessionID string) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.config.Session.TouchTimeout)
		defer cancel()
		if err := e.sessions.Touch(ctx, sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
			e.logger.Warn("session touch failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
}

/*
====================================
LOGOUT
====================================
*/

// Logout blacklists accessToken until its own expiry and deletes its session.
// When refreshToken is not empty it is revoked as well; otherwise the refresh
// chain stays usable.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return ErrTokenMissing
	}
	result := e.flows.Logout(ctx, accessToken, refreshToken)

	var err error
	switch result.Failure {
	case flows.LogoutFailureNone:
	case flows.LogoutFailureMalformed:
		err = ErrTokenMalformed
	case flows.LogoutFailureLedger, flows.LogoutFailureStorage:
		err = unavailable("logout", result.Err)
	default:
		err = ErrEngineNotReady
	}
	if err != nil {
		e.emitAudit(ctx, auditEventLogout, false, result.AccountID, result.SessionID, err, nil)
		return err
	}

	if result.RefreshForeign {
		e.logger.Warn("logout ignored a refresh token of another account", zap.String("account_id", result.AccountID))
	}
	e.metricInc(MetricLogout)
	e.metricInc(MetricTokenBlacklisted)
	if result.SessionID != "" {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventLogout, true, result.AccountID, result.SessionID, nil, func() map[string]string {
		if result.RefreshRevoked {
			return map[string]string{"refresh_revoked": "true"}
		}
		return nil
	})
	return nil
}

// LogoutAll revokes every refresh token of accountID and deletes all of its
// sessions. Access tokens already issued stay valid until they expire unless
// they are logged out individually.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) error {
	result, err := e.flows.LogoutAll(ctx, accountID)
	if err != nil {
		err = unavailable("logout all", err)
		e.emitAudit(ctx, auditEventLogoutAll, false, accountID, "", err, nil)
		return err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, accountID, "", nil, func() map[string]string {
		return map[string]string{
			"refresh_tokens": itoa(result.RefreshTokens),
			"sessions":       itoa(result.Sessions),
		}
	})
	return nil
}

/*
====================================
ABUSE MITIGATION
====================================
*/

// CheckRateLimit counts one request by identity on route and returns a
// *RateLimitError once the route's policy is exhausted. A counter backend failure
// is logged and the request is allowed.
func (e *Engine) CheckRateLimit(ctx context.Context, identity, route string) error {
	if !e.config.RateLimit.Enabled {
		return nil
	}
	policy := e.config.RateLimit.Policy(route)

	decision, err := e.limiter.Check(ctx, rate.Key(identity, route), rate.Policy{
		Limit:  policy.Limit,
		Window: policy.Window,
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, rate.ErrRateLimited) {
		e.logger.Warn("rate limit store failed", zap.String("route", route), zap.Error(err))
		return nil
	}

	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", ErrRateLimited, func() map[string]string {
		return map[string]string{"route": route}
	})
	return &RateLimitError{Route: route, RetryAfter: decision.RetryAfter}
}

// ScanPayload runs the WAF over a decoded JSON value and returns
// ErrSuspiciousPayload on any match. The error never names the pattern.
func (e *Engine) ScanPayload(ctx context.Context, v any) error {
	if err := e.scanner.Scan(v); err != nil {
		return e.suspicious(ctx, err)
	}
	return nil
}

// ScanJSON is ScanPayload over a raw JSON body.
func (e *Engine) ScanJSON(ctx context.Context, body []byte) error {
	if err := e.scanner.ScanJSON(body); err != nil {
		if errors.Is(err, waf.ErrMalformedPayload) {
			return ErrInvalidInput
		}
		return e.suspicious(ctx, err)
	}
	return nil
}

// Scanner exposes the payload scanner for transport middleware.
func (e *Engine) Scanner() *waf.Scanner {
	return e.scanner
}

func (e *Engine) suspicious(ctx context.Context, err error) error {
	if !errors.Is(err, waf.ErrSuspiciousPayload) {
		return ErrInvalidInput
	}
	e.metricInc(MetricSuspiciousPayload)
	e.emitAudit(ctx, auditEventSuspiciousPayload, false, "", "", ErrSuspiciousPayload, nil)
	return ErrSuspiciousPayload
}

// RecordSuspiciousPayload counts a WAF rejection made outside the Engine.
func (e *Engine) RecordSuspiciousPayload(ctx context.Context) {
	e.metricInc(MetricSuspiciousPayload)
	e.emitAudit(ctx, auditEventSuspiciousPayload, false, "", "", ErrSuspiciousPayload, nil)
}

/*
====================================
BACKGROUND DELIVERY
====================================
*/

func (e *Engine) sendMail(to, subject, body string) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := e.mailer.Send(ctx, to, subject, body); err != nil {
			e.logger.Warn("mail delivery failed", zap.String("subject", subject), zap.Error(err))
		}
	}()
}
