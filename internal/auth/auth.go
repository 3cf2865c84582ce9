// Package auth checks the static operator bearer token.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

func HashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// Matches compares got against want in constant time. Hashing first keeps
// the comparison independent of the tokens' lengths.
func Matches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(got)), []byte(HashToken(want))) == 1
}
