// Package otel mirrors engine counters into OpenTelemetry.
//
// [New] registers an Int64ObservableCounter per engine counter and an
// Int64ObservableGauge per latency bucket. The caller owns the
// MeterProvider and supplies the Meter.
package otel
