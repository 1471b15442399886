package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/forumguard"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot forumguard.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() forumguard.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := forumguard.MetricsSnapshot{
		Counters:   make(map[forumguard.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[forumguard.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findInt(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterCollectsValues(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("forumguard-test")

	src := &fakeSource{
		snapshot: forumguard.MetricsSnapshot{
			Counters: map[forumguard.MetricID]uint64{
				forumguard.MetricLoginSuccess: 3,
				forumguard.MetricRateLimitHit: 9,
			},
			Histograms: map[forumguard.MetricID][]uint64{
				forumguard.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewFromSource(meter, src, Gauge{
		Name:        "forumguard_ratelimit_tracked_keys",
		Description: "Keys tracked by the rate limit gate.",
		Read:        func() uint64 { return 12 },
	})
	if err != nil {
		t.Fatalf("NewFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	cases := map[string]int64{
		"forumguard_login_success_total":                    3,
		"forumguard_rate_limit_hit_total":                   9,
		"forumguard_audit_dropped_total":                    1,
		"forumguard_validate_latency_seconds_count":         8,
		"forumguard_validate_latency_seconds_bucket_le_0_01": 2,
		"forumguard_ratelimit_tracked_keys":                 12,
	}
	for name, want := range cases {
		got, ok := findInt(rm, name)
		if !ok {
			t.Fatalf("metric %s not collected", name)
		}
		if got != want {
			t.Fatalf("metric %s = %d, want %d", name, got, want)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()
	meter := provider.Meter("forumguard-test")

	if _, err := NewFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := New(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("forumguard-test")

	src := &fakeSource{
		snapshot: forumguard.MetricsSnapshot{
			Counters: map[forumguard.MetricID]uint64{forumguard.MetricLoginSuccess: 1},
		},
	}

	exp, err := NewFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[forumguard.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
