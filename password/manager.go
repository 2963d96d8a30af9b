package password

import (
	"errors"
	"fmt"
)

// Hasher is implemented by [Argon2] and [Bcrypt].
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
	// Owns reports whether encodedHash was produced by this algorithm.
	Owns(encodedHash string) bool
}

// Algorithm names the primary hashing algorithm.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

var (
	// ErrUnknownHash is returned when no configured hasher recognises a stored hash.
	ErrUnknownHash = errors.New("unrecognised password hash format")
	// ErrTooShort and ErrTooLong are returned by Policy.Check.
	ErrTooShort = errors.New("password too short")
	ErrTooLong  = errors.New("password too long")
)

// Policy bounds password length in bytes. bcrypt ignores input past 72 bytes, so
// MaxBytes should not exceed that while bcrypt hashes may still be verified.
type Policy struct {
	MinBytes int
	MaxBytes int
}

// Check returns ErrTooShort or ErrTooLong when password falls outside the policy.
func (p Policy) Check(password string) error {
	if p.MinBytes > 0 && len(password) < p.MinBytes {
		return fmt.Errorf("%w: minimum %d bytes", ErrTooShort, p.MinBytes)
	}
	if p.MaxBytes > 0 && len(password) > p.MaxBytes {
		return fmt.Errorf("%w: maximum %d bytes", ErrTooLong, p.MaxBytes)
	}
	return nil
}

// Manager hashes with a primary algorithm and verifies any supported format, so a
// deployment can switch algorithms without invalidating stored hashes.
type Manager struct {
	primary Hasher
	all     []Hasher
}

// NewManager returns a Manager hashing with primary and also verifying with legacy.
func NewManager(primary Hasher, legacy ...Hasher) *Manager {
	all := make([]Hasher, 0, 1+len(legacy))
	all = append(all, primary)
	for _, h := range legacy {
		if h != nil {
			all = append(all, h)
		}
	}
	return &Manager{primary: primary, all: all}
}

// Hash hashes with the primary algorithm.
func (m *Manager) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify dispatches on the hash prefix.
func (m *Manager) Verify(password, encodedHash string) (bool, error) {
	h := m.owner(encodedHash)
	if h == nil {
		return false, ErrUnknownHash
	}
	return h.Verify(password, encodedHash)
}

// NeedsUpgrade is true for hashes from a non-primary algorithm or weaker parameters.
func (m *Manager) NeedsUpgrade(encodedHash string) (bool, error) {
	h := m.owner(encodedHash)
	if h == nil {
		return false, ErrUnknownHash
	}
	if h != m.primary {
		return true, nil
	}
	return h.NeedsUpgrade(encodedHash)
}

func (m *Manager) owner(encodedHash string) Hasher {
	for _, h := range m.all {
		if h.Owns(encodedHash) {
			return h
		}
	}
	return nil
}
