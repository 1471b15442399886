package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the access-token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret. Deployment default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key.
	MethodEd25519 SigningMethod = "ed25519"
)

// KindAccess is the typ claim value of access tokens.
const KindAccess = "access"

var (
	// ErrInvalid reports a token that is malformed, forged, of the wrong kind
	// or otherwise unacceptable.
	ErrInvalid = errors.New("jwt: invalid access token")
	// ErrExpired reports an authentic access token past its exp.
	ErrExpired = errors.New("jwt: access token expired")
)

// Config configures a [Manager].
//
// PrivateKey is the HS256 secret, or the Ed25519 signing key. VerifyKeys
// lets verification accept several kids during key rotation.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	// Now overrides the clock used for iat/exp, for tests.
	Now func() time.Time
}

// Manager signs and verifies access tokens. Keys are decoded once in
// NewManager; the value is immutable and safe for concurrent use.
type Manager struct {
	cfg    Config
	method jwt.SigningMethod
	// signKey is nil for a verify-only Ed25519 manager.
	signKey any
	// defaultKey verifies tokens when no kid map is configured.
	defaultKey any
	byKID      map[string]any
}

// AccessClaims is the JWT payload of an access token.
type AccessClaims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.AccessTTL <= 0:
		return nil, errors.New("jwt: access ttl must be positive")
	case cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute:
		return nil, errors.New("jwt: leeway must be within [0, 2m]")
	case cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour:
		return nil, errors.New("jwt: max future iat must be within [0, 24h]")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{cfg: cfg}
	var decode func([]byte) (any, error)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("jwt: hs256 secret must be at least 32 bytes")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.defaultKey = cfg.PrivateKey
		decode = func(b []byte) (any, error) { return b, nil }
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := edPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) == 0 && len(cfg.VerifyKeys) == 0 {
			return nil, errors.New("jwt: ed25519 needs a public key or verify keys")
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := edPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.defaultKey = pub
		}
		decode = func(b []byte) (any, error) { return edPublicKey(b) }
	default:
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}

	if len(cfg.VerifyKeys) > 0 {
		m.byKID = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("jwt: verify keys contain an empty kid")
			}
			key, err := decode(raw)
			if err != nil {
				return nil, fmt.Errorf("jwt: verify key %q: %w", kid, err)
			}
			m.byKID[kid] = key
		}
		if _, ok := m.byKID[cfg.KeyID]; cfg.KeyID != "" && !ok {
			return nil, errors.New("jwt: KeyID missing from VerifyKeys")
		}
	}
	return m, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.cfg.AccessTTL
}

// CreateAccess mints an access token for userID expiring AccessTTL from now.
func (m *Manager) CreateAccess(userID int64) (string, error) {
	if userID <= 0 {
		return "", errors.New("jwt: user id must be positive")
	}
	if m.signKey == nil {
		return "", errors.New("jwt: manager has no signing key")
	}

	now := m.cfg.Now()
	reg := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    m.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTTL)),
	}
	if m.cfg.Audience != "" {
		reg.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	tok := jwt.NewWithClaims(m.method, AccessClaims{Kind: KindAccess, RegisteredClaims: reg})
	if m.cfg.KeyID != "" {
		tok.Header["kid"] = m.cfg.KeyID
	}
	return tok.SignedString(m.signKey)
}

// ParseAccess verifies tokenStr and returns the user id it was issued for.
// It returns [ErrExpired] or an error wrapping [ErrInvalid].
func (m *Manager) ParseAccess(tokenStr string) (int64, error) {
	// Time claims are checked in checkClaims against the injected clock so
	// expiry stays distinguishable from every other failure.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims AccessClaims
	if _, err := parser.ParseWithClaims(tokenStr, &claims, m.lookupKey); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return m.checkClaims(&claims)
}

func (m *Manager) checkClaims(c *AccessClaims) (int64, error) {
	now := m.cfg.Now()

	if c.Kind != KindAccess {
		return 0, fmt.Errorf("%w: token kind %q", ErrInvalid, c.Kind)
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalid)
	}

	var reason string
	switch {
	case m.cfg.Issuer != "" && c.Issuer != m.cfg.Issuer:
		reason = "issuer mismatch"
	case m.cfg.Audience != "" && !slices.Contains(c.Audience, m.cfg.Audience):
		reason = "audience mismatch"
	case c.IssuedAt != nil && c.IssuedAt.After(now.Add(m.cfg.MaxFutureIAT)):
		reason = "iat too far in the future"
	case c.NotBefore != nil && now.Add(m.cfg.Leeway).Before(c.NotBefore.Time):
		reason = "not yet valid"
	case c.ExpiresAt == nil:
		reason = "missing exp"
	}
	if reason != "" {
		return 0, fmt.Errorf("%w: %s", ErrInvalid, reason)
	}

	if !now.Before(c.ExpiresAt.Add(m.cfg.Leeway)) {
		return 0, ErrExpired
	}
	return userID, nil
}

// lookupKey picks the verification key from the kid header. With a kid map
// configured an unknown or absent kid is fatal.
func (m *Manager) lookupKey(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if m.byKID != nil {
		if key, ok := m.byKID[kid]; ok {
			return key, nil
		}
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	if m.cfg.KeyID != "" && kid != m.cfg.KeyID {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	if m.defaultKey == nil {
		return nil, errors.New("no verification key")
	}
	return m.defaultKey, nil
}

// edPrivateKey accepts a raw 64-byte key or a PKCS#8 PEM block.
func edPrivateKey(b []byte) (ed25519.PrivateKey, error) {
	if len(b) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(b), nil
	}
	k, err := jwt.ParseEdPrivateKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("jwt: ed25519 private key: %w", err)
	}
	priv, ok := k.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: ed25519 private key: wrong key type")
	}
	return priv, nil
}

// edPublicKey accepts a raw 32-byte key or a PKIX PEM block.
func edPublicKey(b []byte) (ed25519.PublicKey, error) {
	if len(b) == ed25519.PublicKeySize {
		return ed25519.PublicKey(b), nil
	}
	k, err := jwt.ParseEdPublicKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("jwt: ed25519 public key: %w", err)
	}
	pub, ok := k.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: ed25519 public key: wrong key type")
	}
	return pub, nil
}
