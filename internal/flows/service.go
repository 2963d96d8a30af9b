package flows

import (
	"context"

	"github.com/MrEthical07/gatekeeper/store"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.ParseAccess != nil
}

func (s Service) Login(ctx context.Context, email, password string) LoginResult {
	return RunLogin(ctx, email, password, s.deps.Login, s.deps.Issue)
}

func (s Service) IssueSession(ctx context.Context, account *store.Account) (IssueResult, error) {
	return RunIssueSession(ctx, account, s.deps.Issue)
}

func (s Service) IssueForSession(ctx context.Context, account *store.Account, sessionID string) (IssueResult, error) {
	return RunIssueForSession(ctx, account, sessionID, s.deps.Issue)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Validate(ctx context.Context, tokenStr string) ValidateResult {
	return RunValidate(ctx, tokenStr, s.deps.Validate)
}

func (s Service) Logout(ctx context.Context, accessToken, refreshToken string) LogoutResult {
	return RunLogout(ctx, accessToken, refreshToken, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, accountID string) (LogoutAllResult, error) {
	return RunLogoutAll(ctx, accountID, s.deps.Logout)
}

func (s Service) CreateAccount(ctx context.Context, req AccountCreateRequest) AccountResult {
	return RunCreateAccount(ctx, req, s.deps.Account)
}

func (s Service) ChangePassword(ctx context.Context, accountID, current, next string) AccountResult {
	return RunChangePassword(ctx, accountID, current, next, s.deps.Account)
}

func (s Service) SetSuspended(ctx context.Context, accountID string, suspended bool) (AccountStatusResult, error) {
	return RunSetSuspended(ctx, accountID, suspended, s.deps.AccountStatus)
}

func (s Service) RequestEmailVerification(ctx context.Context, accountID string) VerificationResult {
	return RunRequestEmailVerification(ctx, accountID, s.deps.EmailVerification)
}

func (s Service) ConfirmEmailVerification(ctx context.Context, accountID, code string) VerificationResult {
	return RunConfirmEmailVerification(ctx, accountID, code, s.deps.EmailVerification)
}

func (s Service) RequestPasswordReset(ctx context.Context, email string) PasswordResetResult {
	return RunRequestPasswordReset(ctx, email, s.deps.PasswordReset)
}

func (s Service) ResetPassword(ctx context.Context, email, token, newPassword string) PasswordResetResult {
	return RunResetPassword(ctx, email, token, newPassword, s.deps.PasswordReset)
}
