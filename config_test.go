package forumguard

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	return cfg
}

func TestDefaultConfigNeedsSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without a secret to fail validation")
	}

	cfg = validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "short secret",
			mutate:    func(c *Config) { c.JWT.PrivateKey = []byte("too-short") },
			wantValid: false,
		},
		{
			name:      "zero access ttl",
			mutate:    func(c *Config) { c.JWT.AccessTTL = 0 },
			wantValid: false,
		},
		{
			name:      "refresh not longer than access",
			mutate:    func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL },
			wantValid: false,
		},
		{
			name:      "unknown signing method",
			mutate:    func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantValid: false,
		},
		{
			name:      "ed25519 without public key",
			mutate:    func(c *Config) { c.JWT.SigningMethod = "ed25519" },
			wantValid: false,
		},
		{
			name:      "redis backend",
			mutate:    func(c *Config) { c.Store.Backend = "redis" },
			wantValid: true,
		},
		{
			name:      "unknown backend",
			mutate:    func(c *Config) { c.Store.Backend = "memcached" },
			wantValid: false,
		},
		{
			name:      "zero store timeout",
			mutate:    func(c *Config) { c.Store.OpTimeout = 0 },
			wantValid: false,
		},
		{
			name:      "sweeper disabled",
			mutate:    func(c *Config) { c.Store.SweepInterval = 0 },
			wantValid: true,
		},
		{
			name:      "limiter without capacity",
			mutate:    func(c *Config) { c.RateLimit.MaxTrackedIPs = 0 },
			wantValid: false,
		},
		{
			name: "limiter disabled ignores capacity",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.MaxTrackedIPs = 0
			},
			wantValid: true,
		},
		{
			name:      "trusted proxies ip and cidr",
			mutate:    func(c *Config) { c.Network.TrustedProxies = []string{"10.0.0.1", "172.16.0.0/12", "::1"} },
			wantValid: true,
		},
		{
			name:      "trusted proxy garbage",
			mutate:    func(c *Config) { c.Network.TrustedProxies = []string{"proxy.local"} },
			wantValid: false,
		},
		{
			name:      "weak argon memory",
			mutate:    func(c *Config) { c.Password.Memory = 1024 },
			wantValid: false,
		},
		{
			name:      "audit buffer zero",
			mutate:    func(c *Config) { c.Audit.BufferSize = 0 },
			wantValid: false,
		},
		{
			name:      "log format json",
			mutate:    func(c *Config) { c.Logging.Format = "json" },
			wantValid: true,
		},
		{
			name:      "log format xml",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigIsolatesSlices(t *testing.T) {
	cfg := validConfig()
	cfg.Network.TrustedProxies = []string{"10.0.0.1"}

	cp := cloneConfig(cfg)
	cfg.JWT.PrivateKey[0] = 'X'
	cfg.Network.TrustedProxies[0] = "10.0.0.2"

	if cp.JWT.PrivateKey[0] == 'X' {
		t.Fatal("private key shared with clone")
	}
	if cp.Network.TrustedProxies[0] != "10.0.0.1" {
		t.Fatal("trusted proxies shared with clone")
	}
}

func TestConfigFromLookup(t *testing.T) {
	env := map[string]string{
		"SECRET_KEY":                testSecret,
		"JWT_ACCESS_EXPIRE_MINUTES": "15",
		"JWT_REFRESH_EXPIRE_DAYS":   "14",
		"RATE_LIMIT_MAX_IPS":        "500",
		"TRUSTED_PROXIES":           " 10.0.0.1 , 192.168.0.0/16,,",
		"HTTPS_ONLY":                "true",
		"TOKEN_STORE":               "REDIS",
		"STORE_TIMEOUT_MS":          "750",
		"SWEEP_INTERVAL_MINUTES":    "0",
		"HTTP_ADDR":                 ":9090",
		"LOG_FORMAT":                "json",
	}
	cfg, err := configFromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("configFromLookup: %v", err)
	}

	if string(cfg.JWT.PrivateKey) != testSecret {
		t.Fatal("secret not loaded")
	}
	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 14*24*time.Hour {
		t.Fatalf("ttls = %v / %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.RateLimit.MaxTrackedIPs != 500 {
		t.Fatalf("max ips = %d", cfg.RateLimit.MaxTrackedIPs)
	}
	if len(cfg.Network.TrustedProxies) != 2 || cfg.Network.TrustedProxies[1] != "192.168.0.0/16" {
		t.Fatalf("trusted proxies = %v", cfg.Network.TrustedProxies)
	}
	if !cfg.Security.HTTPSOnly {
		t.Fatal("HTTPS_ONLY not applied")
	}
	if cfg.Store.Backend != "redis" || cfg.Store.OpTimeout != 750*time.Millisecond || cfg.Store.SweepInterval != 0 {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Server.Addr != ":9090" || cfg.Logging.Format != "json" {
		t.Fatalf("server/logging = %+v / %+v", cfg.Server, cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}

func TestConfigFromLookupRejectsMalformedNumbers(t *testing.T) {
	cases := map[string]string{
		"RATE_LIMIT_MAX_IPS":        "ten thousand",
		"JWT_ACCESS_EXPIRE_MINUTES": "-5",
		"SWEEP_INTERVAL_MINUTES":    "-1",
		"JWT_REFRESH_EXPIRE_DAYS":   "week",
	}
	for key, value := range cases {
		_, err := configFromLookup(func(k string) (string, bool) {
			if k == "SECRET_KEY" {
				return "0123456789abcdef0123456789abcdef", true
			}
			if k == key {
				return value, true
			}
			return "", false
		})
		if err == nil || !strings.Contains(err.Error(), key) {
			t.Fatalf("%s=%s: expected error naming the key, got %v", key, value, err)
		}
	}
}
