package forumguard

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadConfigFromEnv builds a Config from DefaultConfig and the process
// environment. A .env file in the working directory is loaded first when
// present; variables already set in the environment win.
func LoadConfigFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return configFromLookup(os.LookupEnv)
}

type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" || r.err != nil {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" || r.err != nil {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

// duration reads a non-negative integer count of unit.
func (r *envReader) duration(key string, unit time.Duration, dst *time.Duration) {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" || r.err != nil {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	switch {
	case err != nil:
		r.err = fmt.Errorf("%s: %w", key, err)
	case n < 0:
		r.err = fmt.Errorf("%s: must not be negative, got %d", key, n)
	default:
		*dst = time.Duration(n) * unit
	}
}

func configFromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	r := &envReader{lookup: lookup}

	var secret string
	r.str("SECRET_KEY", &secret)
	if secret != "" {
		cfg.JWT.PrivateKey = []byte(secret)
	}
	r.str("JWT_SIGNING_METHOD", &cfg.JWT.SigningMethod)
	cfg.JWT.SigningMethod = strings.ToLower(cfg.JWT.SigningMethod)
	var publicKey string
	r.str("JWT_PUBLIC_KEY", &publicKey)
	if publicKey != "" {
		cfg.JWT.PublicKey = []byte(publicKey)
	}
	r.str("JWT_ISSUER", &cfg.JWT.Issuer)
	r.str("JWT_AUDIENCE", &cfg.JWT.Audience)
	r.duration("JWT_ACCESS_EXPIRE_MINUTES", time.Minute, &cfg.JWT.AccessTTL)
	r.duration("JWT_REFRESH_EXPIRE_DAYS", 24*time.Hour, &cfg.JWT.RefreshTTL)

	r.integer("RATE_LIMIT_MAX_IPS", &cfg.RateLimit.MaxTrackedIPs)
	r.boolean("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)

	var proxies string
	r.str("TRUSTED_PROXIES", &proxies)
	if proxies != "" {
		cfg.Network.TrustedProxies = splitList(proxies)
	}

	r.boolean("HTTPS_ONLY", &cfg.Security.HTTPSOnly)
	r.boolean("CSRF_ENABLED", &cfg.Security.CSRFEnabled)

	r.str("DATABASE_URL", &cfg.Database.URL)
	r.integer("DB_MAX_CONNECTIONS", &cfg.Database.MaxConnections)
	r.str("REDIS_ADDR", &cfg.Redis.Addr)
	r.str("REDIS_PASSWORD", &cfg.Redis.Password)
	r.integer("REDIS_DB", &cfg.Redis.DB)

	r.str("TOKEN_STORE", &cfg.Store.Backend)
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	r.duration("STORE_TIMEOUT_MS", time.Millisecond, &cfg.Store.OpTimeout)
	r.duration("SWEEP_INTERVAL_MINUTES", time.Minute, &cfg.Store.SweepInterval)

	r.str("LOG_LEVEL", &cfg.Logging.Level)
	r.str("LOG_FORMAT", &cfg.Logging.Format)
	r.str("HTTP_ADDR", &cfg.Server.Addr)

	if r.err != nil {
		return Config{}, r.err
	}
	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
