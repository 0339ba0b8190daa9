package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// GenerateLinkToken returns a fresh random token for an email sign-in link,
// URL-safe so it can ride in a query parameter.
func GenerateLinkToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DigestToken returns a SHA-256 hash of the token string, hex-encoded.
// Only the digest is stored; the raw token exists solely in the emailed link.
func DigestToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// DigestEqual performs constant-time comparison of the provided token's digest
// with the stored digest. Returns true only if they match.
func DigestEqual(providedToken, storedDigest string) bool {
	providedDigest := DigestToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedDigest), []byte(storedDigest)) == 1
}
