package main

import (
	"log/slog"
	"net/http"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/clientip"
	"github.com/MrEthical07/forumguard/httpauth"
	"github.com/MrEthical07/forumguard/metrics/export/prometheus"
	"github.com/MrEthical07/forumguard/middleware"
)

// newHandler assembles the request pipeline:
// LogRequest -> CSRFGuard -> RateLimitGate -> routes.
func newHandler(engine *forumguard.Engine, resolver *clientip.Resolver, log *slog.Logger) (http.Handler, *middleware.RateLimitGate) {
	cfg := engine.Config()

	mux := http.NewServeMux()
	httpauth.New(engine, httpauth.Options{
		SecureCookies: cfg.Security.HTTPSOnly,
		Logger:        log,
	}).Register(mux)

	var filters []middleware.Filter
	if cfg.Security.CSRFEnabled {
		csrf := middleware.DefaultCSRFConfig()
		csrf.Secure = cfg.Security.HTTPSOnly
		csrf.MaxAge = cfg.Security.CSRFCookieTTL
		filters = append(filters, middleware.NewCSRFGuard(csrf))
	}

	var gate *middleware.RateLimitGate
	if cfg.RateLimit.Enabled {
		rl := middleware.DefaultRateLimitConfig()
		rl.MaxKeys = cfg.RateLimit.MaxTrackedIPs
		rl.UnknownCap = cfg.RateLimit.UnknownCap
		rl.Shards = cfg.RateLimit.Shards
		rl.Logger = log
		gate = middleware.NewRateLimitGate(rl, resolver)
		filters = append(filters, gate)
	}

	if cfg.Metrics.Enabled {
		exp := prometheus.New(engine)
		if gate != nil {
			exp.WithGauge("forumguard_ratelimit_tracked_keys", "Client keys tracked by the rate limit gate.", func() uint64 {
				return uint64(gate.Tracked())
			})
		}
		mux.Handle("GET /metrics", exp.Handler())
	}

	pipeline := middleware.NewPipeline(filters...).OnReject(func(r *http.Request, rej *middleware.Rejection) {
		engine.RecordRejection(r.Context(), rej.Err, r.URL.Path)
	})
	return middleware.LogRequest(log, resolver)(pipeline.Then(mux)), gate
}
