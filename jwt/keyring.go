package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// keyring holds the parsed signing key and every accepted verification key.
type keyring struct {
	method jwt.SigningMethod
	sign   any
	// byKid is consulted when the token carries a kid header.
	byKid map[string]any
	// fallback verifies tokens without kid; nil when a kid is mandatory.
	fallback any
}

func newKeyring(cfg Config) (*keyring, error) {
	k := &keyring{byKid: make(map[string]any, len(cfg.VerifyKeys)+1)}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
		k.method = jwt.SigningMethodHS256
		k.sign = cfg.PrivateKey
		k.fallback = cfg.PrivateKey
		for kid, secret := range cfg.VerifyKeys {
			k.byKid[kid] = secret
		}
	case MethodEd25519:
		k.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			k.sign = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			k.fallback = pub
		}
		for kid, raw := range cfg.VerifyKeys {
			pub, err := parseEdPublicKey(raw)
			if err != nil {
				return nil, fmt.Errorf("ed25519 verify key %q: %w", kid, err)
			}
			k.byKid[kid] = pub
		}
		if k.fallback == nil && len(k.byKid) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	for kid := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
	}

	// Once a key id is in play every token must name its key.
	switch {
	case len(cfg.VerifyKeys) > 0:
		if cfg.KeyID != "" {
			if _, ok := k.byKid[cfg.KeyID]; !ok {
				return nil, errors.New("KeyID is not present in VerifyKeys")
			}
		}
		k.fallback = nil
	case cfg.KeyID != "":
		k.byKid[cfg.KeyID] = k.fallback
		k.fallback = nil
	}
	return k, nil
}

func (k *keyring) verifyKey(kid string) (any, error) {
	if kid == "" {
		if k.fallback == nil {
			return nil, fmt.Errorf("%w: missing kid", ErrUnknownKey)
		}
		return k.fallback, nil
	}
	key, ok := k.byKid[kid]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
	}
	return key, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
