package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/forumguard"
)

type fakeSource struct {
	snapshot forumguard.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() forumguard.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func emptySnapshot() forumguard.MetricsSnapshot {
	return forumguard.MetricsSnapshot{
		Counters:   map[forumguard.MetricID]uint64{},
		Histograms: map[forumguard.MetricID][]uint64{},
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewFromSource(fakeSource{snapshot: emptySnapshot()})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: forumguard.MetricsSnapshot{
			Counters: map[forumguard.MetricID]uint64{
				forumguard.MetricLoginSuccess:    7,
				forumguard.MetricRefreshLostRace: 1,
				forumguard.MetricCSRFRejected:    4,
			},
			Histograms: map[forumguard.MetricID][]uint64{
				forumguard.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"forumguard_login_success_total 7",
		"forumguard_refresh_lost_race_total 1",
		"forumguard_csrf_rejected_total 4",
		"forumguard_rate_limit_hit_total 0",
		"forumguard_validate_latency_seconds_bucket{le=\"0.005\"} 1",
		"forumguard_validate_latency_seconds_bucket{le=\"+Inf\"} 36",
		"forumguard_validate_latency_seconds_count 36",
		"forumguard_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderGauges(t *testing.T) {
	tracked := uint64(42)
	exp := NewFromSource(fakeSource{snapshot: emptySnapshot()}).
		WithGauge("forumguard_ratelimit_tracked_keys", "Keys tracked by the rate limit gate.", func() uint64 { return tracked }).
		WithGauge("ignored", "nil reader", nil)

	out := exp.Render()
	if !strings.Contains(out, "# TYPE forumguard_ratelimit_tracked_keys gauge") {
		t.Fatalf("expected gauge type line, got:\n%s", out)
	}
	if !strings.Contains(out, "forumguard_ratelimit_tracked_keys 42") {
		t.Fatalf("expected gauge sample, got:\n%s", out)
	}
	if strings.Contains(out, "ignored") {
		t.Fatalf("nil gauge reader should be skipped, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	snap := emptySnapshot()
	snap.Counters[forumguard.MetricLoginSuccess] = 1
	exp := NewFromSource(fakeSource{snapshot: snap})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewFromSource(fakeSource{
		snapshot: forumguard.MetricsSnapshot{
			Counters: map[forumguard.MetricID]uint64{
				forumguard.MetricLoginSuccess:   1000,
				forumguard.MetricLoginFailure:   40,
				forumguard.MetricRefreshSuccess: 800,
				forumguard.MetricRefreshInvalid: 10,
				forumguard.MetricRateLimitHit:   55,
			},
			Histograms: map[forumguard.MetricID][]uint64{
				forumguard.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
