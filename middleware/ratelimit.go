package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/clientip"
	"github.com/MrEthical07/forumguard/internal/rate"
)

// Policy admits at most Max requests per Window.
type Policy struct {
	Max    int
	Window time.Duration
}

// DefaultPolicies returns the per-route write limits of the forum API.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		"/v1/auth/session":      {Max: 5, Window: time.Minute},
		"/v1/users":             {Max: 3, Window: time.Minute},
		"/v1/users/me/password": {Max: 3, Window: time.Minute},
		"/v1/users/me":          {Max: 2, Window: time.Minute},
		"/v1/posts":             {Max: 10, Window: time.Minute},
	}
}

// DefaultPolicy applies to writes on routes absent from the table.
var DefaultPolicy = Policy{Max: 100, Window: time.Minute}

// RateLimitConfig configures [RateLimitGate].
type RateLimitConfig struct {
	// Policies maps exact request paths to their policy.
	Policies map[string]Policy
	Default  Policy
	// BypassPaths and BypassPrefixes are never limited.
	BypassPaths    []string
	BypassPrefixes []string
	// MaxKeys bounds the (IP, route) pairs tracked by the whole gate.
	MaxKeys    int
	UnknownCap int
	Shards     int
	Now        func() time.Time
	Logger     *slog.Logger
}

// DefaultRateLimitConfig returns the forum's route table with the health
// check and static assets bypassed.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Policies:       DefaultPolicies(),
		Default:        DefaultPolicy,
		BypassPaths:    []string{"/health"},
		BypassPrefixes: []string{"/assets/"},
	}
}

// RateLimitGate applies a sliding-window limit per client IP and route.
// All routes share one limiter keyed by (IP, route), so a client's login
// attempts never eat into its post budget while MaxKeys still bounds the
// gate as a whole. Unlisted routes share the default policy key.
type RateLimitGate struct {
	cfg      RateLimitConfig
	resolver *clientip.Resolver
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// keySep never occurs in a resolved client IP.
const keySep = "\x00"

const defaultRouteKey = "*"

// NewRateLimitGate builds the gate. A nil resolver trusts no proxies.
func NewRateLimitGate(cfg RateLimitConfig, resolver *clientip.Resolver) *RateLimitGate {
	if cfg.Default.Max <= 0 || cfg.Default.Window <= 0 {
		cfg.Default = DefaultPolicy
	}
	if resolver == nil {
		resolver, _ = clientip.New(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "ratelimit"))

	policies := make(map[string]Policy, len(cfg.Policies))
	for path, p := range cfg.Policies {
		if p.Max > 0 && p.Window > 0 {
			policies[path] = p
		}
	}
	cfg.Policies = policies

	g := &RateLimitGate{cfg: cfg, resolver: resolver, logger: logger}
	g.limiter = rate.New(rate.Config{
		MaxKeys:    cfg.MaxKeys,
		UnknownCap: cfg.UnknownCap,
		Shards:     cfg.Shards,
		IsUnknown:  func(key string) bool { return clientip.IsUnknown(clientOf(key)) },
		Now:        cfg.Now,
		OnEvict: func(evicted, remaining int) {
			logger.Warn("rate limiter batch eviction",
				slog.Int("evicted", evicted),
				slog.Int("remaining", remaining),
			)
		},
	})
	return g
}

func clientOf(key string) string {
	ip, _, _ := strings.Cut(key, keySep)
	return ip
}

// Check admits or rejects r. Admitted writes get X-RateLimit-Limit and
// X-RateLimit-Remaining headers.
func (g *RateLimitGate) Check(w http.ResponseWriter, r *http.Request) *Rejection {
	if g.bypass(r) {
		return nil
	}

	path := r.URL.Path
	policy, route := g.policyFor(path)
	ip := g.resolver.FromRequest(r)
	if clientip.IsUnknown(ip) {
		g.logger.Warn("rate limiting unresolved client", slog.String("path", path))
	}

	d := g.limiter.Check(ip+keySep+route, policy.Max, policy.Window)
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))

	if d.Limited {
		retry := int(policy.Window / time.Second)
		h.Set("X-RateLimit-Remaining", "0")
		h.Set("Retry-After", strconv.Itoa(retry))
		return &Rejection{
			Status:            http.StatusTooManyRequests,
			Code:              "too_many_requests",
			Message:           "too many requests, retry later",
			Err:               forumguard.ErrRateLimited,
			RetryAfterSeconds: retry,
		}
	}

	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	return nil
}

// SweepIdle drops (IP, route) pairs with no hits inside their window and
// returns how many were removed.
func (g *RateLimitGate) SweepIdle() int {
	return g.limiter.SweepIdle()
}

// Tracked returns the number of tracked (IP, route) pairs. It never exceeds
// MaxKeys by more than one eviction batch.
func (g *RateLimitGate) Tracked() int {
	return g.limiter.Len()
}

func (g *RateLimitGate) policyFor(path string) (Policy, string) {
	if p, ok := g.cfg.Policies[path]; ok {
		return p, path
	}
	return g.cfg.Default, defaultRouteKey
}

func (g *RateLimitGate) bypass(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	path := r.URL.Path
	for _, p := range g.cfg.BypassPaths {
		if path == p {
			return true
		}
	}
	for _, p := range g.cfg.BypassPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
