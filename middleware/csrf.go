package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/forumguard"
)

const (
	DefaultCSRFCookie = "csrf_token"
	DefaultCSRFHeader = "X-CSRF-Token"
	csrfTokenBytes    = 32
)

// CSRFConfig configures [CSRFGuard].
type CSRFConfig struct {
	CookieName string
	HeaderName string
	// ExemptPrefixes skip validation for any path starting with an entry.
	ExemptPrefixes []string
	// ExemptPaths skip validation for exact path matches.
	ExemptPaths []string
	Secure      bool
	MaxAge      time.Duration
}

// DefaultCSRFConfig exempts login, signup and the health check.
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		CookieName:     DefaultCSRFCookie,
		HeaderName:     DefaultCSRFHeader,
		ExemptPrefixes: []string{"/v1/auth/session", "/health"},
		ExemptPaths:    []string{"/v1/users"},
		MaxAge:         24 * time.Hour,
	}
}

// CSRFGuard implements the double-submit cookie defense.
type CSRFGuard struct {
	cfg CSRFConfig
}

func NewCSRFGuard(cfg CSRFConfig) *CSRFGuard {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookie
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeader
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &CSRFGuard{cfg: cfg}
}

// Check validates protected requests and mints the cookie on the rest.
func (g *CSRFGuard) Check(w http.ResponseWriter, r *http.Request) *Rejection {
	if !isProtectedMethod(r.Method) || g.exempt(r.URL.Path) {
		g.ensureCookie(w, r)
		return nil
	}

	var cookieToken string
	if c, err := r.Cookie(g.cfg.CookieName); err == nil {
		cookieToken = c.Value
	}
	headerToken := r.Header.Get(g.cfg.HeaderName)

	if cookieToken == "" || headerToken == "" {
		return &Rejection{
			Status:  http.StatusForbidden,
			Code:    "csrf_missing",
			Message: "CSRF token missing",
			Err:     forumguard.ErrCSRFMissing,
		}
	}
	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
		return &Rejection{
			Status:  http.StatusForbidden,
			Code:    "csrf_mismatch",
			Message: "CSRF token mismatch",
			Err:     forumguard.ErrCSRFMismatch,
		}
	}
	return nil
}

func (g *CSRFGuard) ensureCookie(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(g.cfg.CookieName); err == nil && c.Value != "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    newCSRFToken(),
		Path:     "/",
		MaxAge:   int(g.cfg.MaxAge / time.Second),
		HttpOnly: false, // the client mirrors it into the header
		Secure:   g.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (g *CSRFGuard) exempt(path string) bool {
	for _, p := range g.cfg.ExemptPaths {
		if path == p {
			return true
		}
	}
	for _, p := range g.cfg.ExemptPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isProtectedMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func newCSRFToken() string {
	var b [csrfTokenBytes]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
