package gatekeeper

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterValidatesInput(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := []RegisterInput{
		{Name: "", Email: "alice@example.com", Password: testPassword},
		{Name: "Alice", Email: "not-an-email", Password: testPassword},
		{Name: "Alice", Email: "alice@example.com", Password: ""},
		{Name: strings.Repeat("a", 129), Email: "alice@example.com", Password: testPassword},
	}
	for i, in := range cases {
		if _, err := env.engine.Register(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestRegisterStoresNormalizedAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.register(t, "Alice", "Alice@Example.COM")

	if account.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", account.Email)
	}
	if account.Role != "member" || account.Suspended || account.EmailVerified {
		t.Fatalf("unexpected defaults %+v", account)
	}
	if account.PasswordHash == "" || strings.Contains(account.PasswordHash, testPassword) {
		t.Fatal("expected password stored as hash")
	}

	stored, err := env.engine.Account(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if stored.Email != account.Email {
		t.Fatalf("stored email %q", stored.Email)
	}
}

func TestRegisterDuplicateEmailIgnoresCase(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "Alice", "alice@example.com")

	_, err := env.engine.Register(context.Background(), RegisterInput{
		Name:     "Other Alice",
		Email:    "ALICE@example.com",
		Password: testPassword,
	})
	if !errors.Is(err, ErrEmailAlreadyInUse) {
		t.Fatalf("expected ErrEmailAlreadyInUse, got %v", err)
	}
}

func TestRegisterPasswordPolicy(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, pw := range []string{"short", strings.Repeat("x", 73)} {
		_, err := env.engine.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: pw})
		if !errors.Is(err, ErrPasswordPolicy) {
			t.Fatalf("password of %d bytes: expected ErrPasswordPolicy, got %v", len(pw), err)
		}
	}
}

func TestRegisterSendsWelcomeMail(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Account.SendWelcomeMail = true })
	env.register(t, "<b>Alice</b>", "alice@example.com")

	msg := env.mail.next(t)
	if msg.To != "alice@example.com" || msg.Subject != "Welcome" {
		t.Fatalf("unexpected mail %+v", msg)
	}
	if strings.Contains(msg.Body, "<b>Alice</b>") {
		t.Fatal("expected name to be escaped in mail body")
	}
}

func TestAccountNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.engine.Account(context.Background(), "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := env.engine.SuspendAccount(context.Background(), "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	current := env.login(t, "alice@example.com")
	other := env.login(t, "alice@example.com")

	const next = "brand-new-password-42"
	pair, err := env.engine.ChangePassword(ctx, account.ID, current.SessionID, testPassword, next)
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := env.engine.Login(ctx, "alice@example.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", next); err != nil {
		t.Fatalf("new password login: %v", err)
	}

	for _, res := range []*LoginResult{current, other} {
		if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected old refresh tokens revoked, got %v", err)
		}
	}

	rotated, err := env.engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh with returned pair: %v", err)
	}
	auth, err := env.engine.Authenticate(ctx, rotated.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if auth.SessionID != current.SessionID {
		t.Fatalf("expected kept session %q, got %q", current.SessionID, auth.SessionID)
	}

	sessions, err := env.engine.ListSessions(ctx, account.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	for _, s := range sessions {
		if s.ID == other.SessionID {
			t.Fatal("expected other session removed")
		}
	}
}

func TestChangePasswordFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	if _, err := env.engine.ChangePassword(ctx, account.ID, "", "wrong-password-1", "brand-new-password-42"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.engine.ChangePassword(ctx, account.ID, "", testPassword, "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if _, err := env.engine.ChangePassword(ctx, "missing", "", testPassword, "brand-new-password-42"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("password must be unchanged after failures: %v", err)
	}
}

func TestPasswordCheckErrorsAreNotCredentialFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := env.engine.Login(cancelled, "alice@example.com", testPassword)
	if !errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("cancelled login: expected ErrServiceUnavailable, got %v", err)
	}

	if err := env.store.SetPasswordHash(ctx, account.ID, "$2a$12$truncated"); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", testPassword); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("corrupt hash login: expected ErrServiceUnavailable, got %v", err)
	}
	if _, err := env.engine.ChangePassword(ctx, account.ID, "", testPassword, "brand-new-password-42"); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("corrupt hash change: expected ErrServiceUnavailable, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", "wrong-password-1"); errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("an unreadable hash must not look like a wrong password")
	}
}

func TestSuspendAndReinstate(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.register(t, "Alice", "alice@example.com")
	ctx := context.Background()
	res := env.login(t, "alice@example.com")

	if err := env.engine.SuspendAccount(ctx, account.ID); err != nil {
		t.Fatalf("SuspendAccount: %v", err)
	}
	if err := env.engine.SuspendAccount(ctx, account.ID); err != nil {
		t.Fatalf("second SuspendAccount must be a no-op: %v", err)
	}
	sessions, _ := env.engine.ListSessions(ctx, account.ID)
	if len(sessions) != 0 {
		t.Fatalf("expected sessions removed on suspension, got %d", len(sessions))
	}

	if err := env.engine.ReinstateAccount(ctx, account.ID); err != nil {
		t.Fatalf("ReinstateAccount: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("revoked refresh token must stay revoked, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("login after reinstatement: %v", err)
	}
}
