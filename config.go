package forumguard

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Config is the full runtime configuration. It is immutable after
// [Builder.Build].
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Network   NetworkConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Logging   LoggingConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token signing and refresh lifetime.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters for newly written hashes.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig selects and tunes the refresh-token store.
type StoreConfig struct {
	Backend       string // "postgres" (default) or "redis"
	RedisPrefix   string
	OpTimeout     time.Duration
	SweepInterval time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig bounds the in-memory limiter.
type RateLimitConfig struct {
	Enabled       bool
	MaxTrackedIPs int
	UnknownCap    int
	Shards        int
}

// NetworkConfig lists the reverse proxies whose forwarding headers are
// trusted. Entries are IPs or CIDR prefixes.
type NetworkConfig struct {
	TrustedProxies []string
}

// SecurityConfig holds cookie and CSRF settings.
type SecurityConfig struct {
	HTTPSOnly     bool
	CSRFEnabled   bool
	CSRFCookieTTL time.Duration
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
INFRASTRUCTURE CONFIG
====================================
*/

// DatabaseConfig configures the Postgres pool.
type DatabaseConfig struct {
	URL             string
	MaxConnections  int
	MinConnections  int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. A signing key must still be
// supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Store: StoreConfig{
			Backend:       "postgres",
			RedisPrefix:   "frt",
			OpTimeout:     3 * time.Second,
			SweepInterval: time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			MaxTrackedIPs: 10000,
			UnknownCap:    10,
			Shards:        32,
		},
		Security: SecurityConfig{
			HTTPSOnly:     false,
			CSRFEnabled:   true,
			CSRFCookieTTL: 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Database: DatabaseConfig{
			MaxConnections:  25,
			MinConnections:  5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Network.TrustedProxies = append([]string(nil), cfg.Network.TrustedProxies...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must exceed AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a secret key of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Store
	switch c.Store.Backend {
	case "postgres", "redis":
	default:
		return fmt.Errorf("Store Backend %q must be 'postgres' or 'redis'", c.Store.Backend)
	}
	if c.Store.OpTimeout <= 0 {
		return errors.New("Store OpTimeout must be > 0")
	}
	if c.Store.SweepInterval < 0 {
		return errors.New("Store SweepInterval must be >= 0")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxTrackedIPs <= 0 {
			return errors.New("RateLimit MaxTrackedIPs must be > 0")
		}
		if c.RateLimit.UnknownCap <= 0 {
			return errors.New("RateLimit UnknownCap must be > 0")
		}
	}

	// Network
	for _, entry := range c.Network.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("invalid trusted proxy %q", entry)
		}
	}

	if c.Security.CSRFEnabled && c.Security.CSRFCookieTTL <= 0 {
		return errors.New("Security CSRFCookieTTL must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return errors.New("Logging Format must be 'text' or 'json'")
	}

	return nil
}
