package password

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks plaintext passwords against Argon2id or bcrypt hashes.
type Verifier struct {
	argon *Argon2
	dummy string
}

// NewVerifier returns a [Verifier] that hashes new passwords with argon.
func NewVerifier(argon *Argon2) (*Verifier, error) {
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, err
	}
	dummy, err := argon.Hash(base64.RawStdEncoding.EncodeToString(buf[:]))
	if err != nil {
		return nil, err
	}
	return &Verifier{argon: argon, dummy: dummy}, nil
}

// DefaultConfig returns the Argon2id parameters used for new hashes.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Verify reports whether plain matches hash.
func (v *Verifier) Verify(plain, hash string) bool {
	switch {
	case strings.HasPrefix(hash, "$"+algorithmID+"$"):
		ok, err := v.argon.Verify(plain, hash)
		return err == nil && ok
	case isBcrypt(hash):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	default:
		return false
	}
}

// Hash returns an Argon2id hash of plain.
func (v *Verifier) Hash(plain string) (string, error) {
	return v.argon.Hash(plain)
}

// NeedsRehash reports whether hash should be replaced on next login.
func (v *Verifier) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	upgrade, err := v.argon.NeedsUpgrade(hash)
	return err != nil || upgrade
}

// DummyHash returns a valid hash that matches no real password.
func (v *Verifier) DummyHash() string {
	return v.dummy
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
