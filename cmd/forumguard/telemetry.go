package main

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/MrEthical07/forumguard"
	otelexport "github.com/MrEthical07/forumguard/metrics/export/otel"
	"github.com/MrEthical07/forumguard/middleware"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// otelReporter mirrors engine metrics into an OpenTelemetry meter provider
// and periodically logs the collected values. It is enabled by
// `serve --otel-interval`.
type otelReporter struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	exporter *otelexport.Exporter
}

func newOTelReporter(engine *forumguard.Engine, gate *middleware.RateLimitGate) (*otelReporter, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	var gauges []otelexport.Gauge
	if gate != nil {
		gauges = append(gauges, otelexport.Gauge{
			Name:        "forumguard_ratelimit_tracked_keys",
			Description: "Client keys tracked by the rate limit gate.",
			Read:        func() uint64 { return uint64(gate.Tracked()) },
		})
	}

	exp, err := otelexport.New(provider.Meter("forumguard"), engine, gauges...)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return &otelReporter{reader: reader, provider: provider, exporter: exp}, nil
}

// collect returns every int64 instrument value, summed over data points.
func (r *otelReporter) collect(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	values := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			}
		}
	}
	return values, nil
}

// run logs non-zero values every interval until ctx ends.
func (r *otelReporter) run(ctx context.Context, every time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			values, err := r.collect(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Warn("otel collect failed", slog.Any("error", err))
				}
				continue
			}
			log.Info("otel metrics", nonZeroAttrs(values)...)
		}
	}
}

func (r *otelReporter) Close(ctx context.Context) error {
	return errors.Join(r.exporter.Close(), r.provider.Shutdown(ctx))
}

func nonZeroAttrs(values map[string]int64) []any {
	names := make([]string, 0, len(values))
	for name, v := range values {
		if v != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	attrs := make([]any, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, slog.Int64(name, values[name]))
	}
	return attrs
}
