package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateOpaqueToken returns n random bytes as a URL-safe string. Used for
// password reset tickets, which are deliberately not signed tokens: they
// live in Redis so they can be revoked and consumed exactly once.
func GenerateOpaqueToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
