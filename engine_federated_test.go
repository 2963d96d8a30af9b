package gatekeeper

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/gatekeeper/federation"
)

type fakeVerifier struct {
	identities map[string]*federation.Identity
	errs       map[string]error
}

func (f *fakeVerifier) Verify(_ context.Context, raw string) (*federation.Identity, error) {
	if err, ok := f.errs[raw]; ok {
		return nil, err
	}
	id, ok := f.identities[raw]
	if !ok {
		return nil, federation.ErrRejected
	}
	c := *id
	return &c, nil
}

func newFederatedEnv(t *testing.T) *testEnv {
	t.Helper()
	verifier := &fakeVerifier{
		identities: map[string]*federation.Identity{
			"tok-carol": {Subject: "google|carol", Email: "Carol@example.com", EmailVerified: true, Name: "Carol"},
			"tok-alice": {Subject: "google|alice", Email: "alice@example.com", EmailVerified: true, Name: "Alice"},
			"tok-mallory": {Subject: "google|mallory", Email: "alice@example.com", EmailVerified: true, Name: "Mallory"},
		},
		errs: map[string]error{
			"tok-unverified": federation.ErrEmailUnverified,
			"tok-down":       federation.ErrUnavailable,
		},
	}
	return newTestEnv(t, nil, func(b *Builder) { b.WithExternalVerifier(verifier) })
}

func TestExternalLoginCreatesAccount(t *testing.T) {
	env := newFederatedEnv(t)
	ctx := context.Background()

	first, err := env.engine.LoginWithExternalIdentity(ctx, "tok-carol")
	if err != nil {
		t.Fatalf("LoginWithExternalIdentity: %v", err)
	}
	if !first.Created || first.AccessToken == "" || first.RefreshToken == "" {
		t.Fatalf("expected created account with tokens, got %+v", first)
	}

	account, err := env.engine.Account(ctx, first.AccountID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Email != "carol@example.com" || !account.EmailVerified || account.PasswordHash != "" {
		t.Fatalf("unexpected external account %+v", account)
	}

	again, err := env.engine.LoginWithExternalIdentity(ctx, "tok-carol")
	if err != nil {
		t.Fatalf("repeat login: %v", err)
	}
	if again.Created || again.AccountID != first.AccountID {
		t.Fatalf("expected existing account on repeat, got %+v", again)
	}

	// No local password: password login must not work.
	if _, err := env.engine.Login(ctx, "carol@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestExternalLoginLinksExistingEmail(t *testing.T) {
	env := newFederatedEnv(t)
	ctx := context.Background()
	alice := env.register(t, "Alice", "alice@example.com")

	res, err := env.engine.LoginWithExternalIdentity(ctx, "tok-alice")
	if err != nil {
		t.Fatalf("LoginWithExternalIdentity: %v", err)
	}
	if res.Created || res.AccountID != alice.ID {
		t.Fatalf("expected link to existing account, got %+v", res)
	}
	account, _ := env.engine.Account(ctx, alice.ID)
	if account.ExternalID != "google|alice" || !account.EmailVerified {
		t.Fatalf("expected linked and verified account, got %+v", account)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("password login must keep working: %v", err)
	}

	// A second provider subject claiming the same email is refused.
	if _, err := env.engine.LoginWithExternalIdentity(ctx, "tok-mallory"); !errors.Is(err, ErrExternalIdentityRejected) {
		t.Fatalf("expected ErrExternalIdentityRejected, got %v", err)
	}
}

func TestExternalLoginFailures(t *testing.T) {
	env := newFederatedEnv(t)
	ctx := context.Background()

	cases := []struct {
		token string
		want  error
	}{
		{"tok-unverified", ErrExternalIdentityUnverified},
		{"tok-forged", ErrExternalIdentityRejected},
		{"tok-down", ErrServiceUnavailable},
	}
	for _, tc := range cases {
		if _, err := env.engine.LoginWithExternalIdentity(ctx, tc.token); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.token, tc.want, err)
		}
	}
}

func TestExternalLoginSuspended(t *testing.T) {
	env := newFederatedEnv(t)
	ctx := context.Background()

	res, err := env.engine.LoginWithExternalIdentity(ctx, "tok-carol")
	if err != nil {
		t.Fatalf("LoginWithExternalIdentity: %v", err)
	}
	if err := env.engine.SuspendAccount(ctx, res.AccountID); err != nil {
		t.Fatalf("SuspendAccount: %v", err)
	}
	if _, err := env.engine.LoginWithExternalIdentity(ctx, "tok-carol"); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}
}

func TestExternalLoginDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.engine.LoginWithExternalIdentity(context.Background(), "tok"); !errors.Is(err, ErrExternalIdentityDisabled) {
		t.Fatalf("expected ErrExternalIdentityDisabled, got %v", err)
	}
}
