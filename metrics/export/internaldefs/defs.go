package internaldefs

import (
	"github.com/MrEthical07/forumguard"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   forumguard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   forumguard.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: forumguard.MetricLoginSuccess, Name: "forumguard_login_success_total", Help: "Successful logins."},
	{ID: forumguard.MetricLoginFailure, Name: "forumguard_login_failure_total", Help: "Rejected logins."},
	{ID: forumguard.MetricRefreshSuccess, Name: "forumguard_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: forumguard.MetricRefreshInvalid, Name: "forumguard_refresh_invalid_total", Help: "Refresh attempts with a missing, unknown or expired secret."},
	{ID: forumguard.MetricRefreshLostRace, Name: "forumguard_refresh_lost_race_total", Help: "Refresh attempts that lost a concurrent rotation."},
	{ID: forumguard.MetricRefreshUnauthorized, Name: "forumguard_refresh_unauthorized_total", Help: "Refresh attempts for deleted or missing users."},
	{ID: forumguard.MetricTokenExpired, Name: "forumguard_token_expired_total", Help: "Access tokens rejected as expired."},
	{ID: forumguard.MetricTokenInvalid, Name: "forumguard_token_invalid_total", Help: "Access tokens rejected as invalid."},
	{ID: forumguard.MetricLogout, Name: "forumguard_logout_total", Help: "Single-session logouts."},
	{ID: forumguard.MetricLogoutAll, Name: "forumguard_logout_all_total", Help: "Logout-all operations."},
	{ID: forumguard.MetricRateLimitHit, Name: "forumguard_rate_limit_hit_total", Help: "Requests denied by the rate limit gate."},
	{ID: forumguard.MetricCSRFRejected, Name: "forumguard_csrf_rejected_total", Help: "Requests denied by the CSRF guard."},
	{ID: forumguard.MetricStoreUnavailable, Name: "forumguard_store_unavailable_total", Help: "Operations failed because a backing store was unreachable."},
	{ID: forumguard.MetricSweepRemoved, Name: "forumguard_sweep_removed_total", Help: "Expired refresh tokens removed by the sweeper."},
}

var HistogramDefs = []HistogramDef{
	{ID: forumguard.MetricValidateLatency, Name: "forumguard_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramBounds match the engine's millisecond buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
