package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const secretSize = 64

// NewSecret returns a fresh base64url refresh secret carrying 512 bits of
// entropy.
func NewSecret() (string, error) {
	var buf [secretSize]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

// HashSecret returns the lowercase hex SHA-256 of raw. It is the only form
// in which a secret is stored.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
