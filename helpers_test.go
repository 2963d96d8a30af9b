package gatekeeper

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/gatekeeper/store"
	"github.com/MrEthical07/gatekeeper/store/memstore"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const testPassword = "correct-horse-battery"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	sent chan sentMail
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan sentMail, 16)}
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.sent <- sentMail{To: to, Subject: subject, Body: body}
	return nil
}

func (m *recordingMailer) next(t *testing.T) sentMail {
	t.Helper()
	select {
	case msg := <-m.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("expected a mail to be sent")
		return sentMail{}
	}
}

func (m *recordingMailer) none(t *testing.T) {
	t.Helper()
	select {
	case msg := <-m.sent:
		t.Fatalf("unexpected mail %q to %s", msg.Subject, msg.To)
	case <-time.After(50 * time.Millisecond):
	}
}

var (
	codePattern  = regexp.MustCompile(`<strong>(\d+)</strong>`)
	tokenPattern = regexp.MustCompile(`<code>([0-9a-f]+)</code>`)
)

func extract(t *testing.T, re *regexp.Regexp, body string) string {
	t.Helper()
	m := re.FindStringSubmatch(body)
	if len(m) != 2 {
		t.Fatalf("no match for %s in %q", re, body)
	}
	return m[1]
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testSecret
	cfg.Password.BcryptCost = 4
	cfg.Password.Workers = 4
	cfg.Account.SendWelcomeMail = false
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *memstore.Store
	clock  *fakeClock
	mail   *recordingMailer
}

func newTestEnv(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	env := &testEnv{
		store: memstore.New(),
		clock: newFakeClock(),
		mail:  newRecordingMailer(),
	}

	b := New().
		WithConfig(cfg).
		WithStore(env.store).
		WithMailer(env.mail).
		WithClock(env.clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) register(t *testing.T, name, email string) *store.Account {
	t.Helper()
	account, err := env.engine.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return account
}

func (env *testEnv) login(t *testing.T, email string) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), email, testPassword)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res
}
