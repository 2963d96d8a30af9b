package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// DefaultOTPDigits is the length of verification codes.
	DefaultOTPDigits = 6
	tokenSize        = 32
)

// NewOTP returns a uniformly distributed numeric code of the given length,
// leading zeros included.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", fmt.Errorf("otp length %d outside 6..10", digits)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// NewToken returns 256 bits of randomness, hex encoded.
func NewToken() (string, error) {
	var raw [tokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// HashSecret returns the hex SHA-256 digest stored in place of a secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compares two digests without leaking the mismatch position.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
