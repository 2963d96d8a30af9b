package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// ErrMalformedHash wraps every PHC decoding failure.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// Argon2Config holds argon2id cost parameters. Memory is in KiB.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Lowest parameters NewArgon2 accepts and decodePHC will verify against.
var argon2Floor = Argon2Config{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

// DefaultArgon2Config returns interactive-login parameters.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < argon2Floor.Memory:
		return fmt.Errorf("argon2 memory must be >= %d KiB", argon2Floor.Memory)
	case c.Time < argon2Floor.Time:
		return fmt.Errorf("argon2 time must be >= %d", argon2Floor.Time)
	case c.Parallelism < argon2Floor.Parallelism:
		return fmt.Errorf("argon2 parallelism must be >= %d", argon2Floor.Parallelism)
	case c.SaltLength < argon2Floor.SaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", argon2Floor.SaltLength)
	case c.KeyLength < argon2Floor.KeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", argon2Floor.KeyLength)
	}
	return nil
}

// Argon2 hashes with argon2id and stores the result as a PHC string:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
//
// Salt and key use unpadded standard base64.
type Argon2 struct {
	config Argon2Config
}

// NewArgon2 rejects parameters below the supported floor.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// phc is a decoded argon2id hash.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key))
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

func decodePHC(encoded string) (phc, error) {
	rest, ok := strings.CutPrefix(encoded, argon2Prefix)
	if !ok {
		return phc{}, fmt.Errorf("%w: not argon2id", ErrMalformedHash)
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return phc{}, fmt.Errorf("%w: want 4 sections, got %d", ErrMalformedHash, len(fields))
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil {
		return phc{}, fmt.Errorf("%w: version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return phc{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var p phc
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil ||
		fields[1] != fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, p.parallelism) {
		return phc{}, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	if p.memory < argon2Floor.Memory || p.time < argon2Floor.Time || p.parallelism < argon2Floor.Parallelism {
		return phc{}, fmt.Errorf("%w: parameters below floor", ErrMalformedHash)
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(fields[2]); err != nil || len(p.salt) < int(argon2Floor.SaltLength) {
		return phc{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(fields[3]); err != nil || len(p.key) == 0 {
		return phc{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return p, nil
}

// Hash derives a key from the raw password bytes; no Unicode normalization is applied.
func (a *Argon2) Hash(password string) (string, error) {
	p := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
		key:         make([]byte, a.config.KeyLength),
	}
	if _, err := rand.Read(p.salt); err != nil {
		return "", err
	}
	p.key = p.derive(password)
	return p.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	p, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(p.derive(password), p.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash is cheaper than the current
// parameters or has a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism ||
		uint32(len(p.key)) != a.config.KeyLength
	return weaker, nil
}

// Owns reports whether encodedHash is an argon2id PHC string.
func (a *Argon2) Owns(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, argon2Prefix)
}
