package internal

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

const signedURLSeparator = "|"

// SignedURLParts is the decoded form of a packed download link.
type SignedURLParts struct {
	Path      string
	ExpiresAt time.Time
	Signature string
}

// PackSignedURL encodes path|expiryEpochMs|signature as base64url. The envelope is
// reversible; unforgeability comes from the persisted signature.
func PackSignedURL(path string, expiresAt time.Time, signature string) string {
	raw := path + signedURLSeparator +
		strconv.FormatInt(expiresAt.UnixMilli(), 10) + signedURLSeparator +
		signature
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// UnpackSignedURL reverses PackSignedURL. It reports ok=false on any malformed input.
// The path may itself contain the separator; expiry and signature are taken from
// the right.
func UnpackSignedURL(token string) (SignedURLParts, bool) {
	if token == "" {
		return SignedURLParts{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return SignedURLParts{}, false
	}

	s := string(raw)
	sigIdx := strings.LastIndex(s, signedURLSeparator)
	if sigIdx <= 0 {
		return SignedURLParts{}, false
	}
	signature := s[sigIdx+1:]
	rest := s[:sigIdx]

	expIdx := strings.LastIndex(rest, signedURLSeparator)
	if expIdx <= 0 {
		return SignedURLParts{}, false
	}
	path := rest[:expIdx]
	ms, err := strconv.ParseInt(rest[expIdx+1:], 10, 64)
	if err != nil || ms <= 0 {
		return SignedURLParts{}, false
	}
	if signature == "" || path == "" {
		return SignedURLParts{}, false
	}

	return SignedURLParts{
		Path:      path,
		ExpiresAt: time.UnixMilli(ms).UTC(),
		Signature: signature,
	}, true
}
