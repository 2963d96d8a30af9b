package password

import (
	"errors"
	"strings"
	"testing"
)

func cheapArgon2Config() Argon2Config {
	return Argon2Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newArgon2(t *testing.T, cfg Argon2Config) *Argon2 {
	t.Helper()
	a, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func TestArgon2RoundTrip(t *testing.T) {
	a := newArgon2(t, cheapArgon2Config())

	encoded, err := a.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC string %s", encoded)
	}
	if strings.Contains(encoded, "=$") || strings.HasSuffix(encoded, "=") {
		t.Fatalf("expected unpadded base64, got %s", encoded)
	}

	for _, tc := range []struct {
		password string
		want     bool
	}{
		{"P@ssw0rd-Ascii", true},
		{"P@ssw0rd-ascii", false},
		{"", false},
	} {
		ok, err := a.Verify(tc.password, encoded)
		if err != nil {
			t.Fatalf("Verify(%q): %v", tc.password, err)
		}
		if ok != tc.want {
			t.Fatalf("Verify(%q) = %v, want %v", tc.password, ok, tc.want)
		}
	}
}

func TestArgon2SaltsDiffer(t *testing.T) {
	a := newArgon2(t, cheapArgon2Config())
	first, _ := a.Hash("same")
	second, _ := a.Hash("same")
	if first == second {
		t.Fatal("two hashes of the same password must not be equal")
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	cheap := newArgon2(t, cheapArgon2Config())
	encoded, err := cheap.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if up, err := cheap.NeedsUpgrade(encoded); err != nil || up {
		t.Fatalf("same parameters: up=%v err=%v", up, err)
	}

	stronger := cheapArgon2Config()
	stronger.Time = 2
	if up, err := newArgon2(t, stronger).NeedsUpgrade(encoded); err != nil || !up {
		t.Fatalf("higher time cost: up=%v err=%v", up, err)
	}

	longer := cheapArgon2Config()
	longer.KeyLength = 64
	if up, err := newArgon2(t, longer).NeedsUpgrade(encoded); err != nil || !up {
		t.Fatalf("different key length: up=%v err=%v", up, err)
	}
}

func TestArgon2RejectsMalformed(t *testing.T) {
	a := newArgon2(t, cheapArgon2Config())
	valid, err := a.Hash("shape")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	sections := strings.Split(valid, "$")

	cases := map[string]string{
		"not phc":        "not-a-phc-hash",
		"bcrypt":         "$2b$12$abcdefghijklmnopqrstuv",
		"old version":    strings.Replace(valid, "$v=19$", "$v=16$", 1),
		"missing key":    strings.Join(sections[:5], "$"),
		"weak memory":    strings.Replace(valid, "m=8192", "m=1024", 1),
		"trailing param": strings.Replace(valid, "p=1$", "p=1,x=2$", 1),
		"padded param":   strings.Replace(valid, "t=1", "t=01", 1),
		"short salt":     strings.Replace(valid, sections[4], "c2FsdA", 1),
		"bad key":        strings.Replace(valid, sections[5], "!!!", 1),
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Verify("shape", encoded); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("expected ErrMalformedHash, got %v", err)
			}
		})
	}
}

func TestArgon2Owns(t *testing.T) {
	a := newArgon2(t, cheapArgon2Config())
	if !a.Owns("$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA") {
		t.Fatal("expected argon2id hash to be owned")
	}
	if a.Owns("$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA") || a.Owns("$2b$12$abcdefghijklmnopqrstuv") {
		t.Fatal("foreign hashes must not be owned")
	}
}

func TestNewArgon2Floor(t *testing.T) {
	mutations := map[string]func(*Argon2Config){
		"memory":      func(c *Argon2Config) { c.Memory = 1024 },
		"time":        func(c *Argon2Config) { c.Time = 0 },
		"parallelism": func(c *Argon2Config) { c.Parallelism = 0 },
		"salt":        func(c *Argon2Config) { c.SaltLength = 8 },
		"key":         func(c *Argon2Config) { c.KeyLength = 8 },
	}
	for name, mutate := range mutations {
		cfg := cheapArgon2Config()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s below floor was accepted", name)
		}
	}
	if _, err := NewArgon2(DefaultArgon2Config()); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}
