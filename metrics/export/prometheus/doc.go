// Package prometheus renders engine counters as Prometheus text.
//
// Counters are named forumguard_*_total and the single histogram is
// forumguard_validate_latency_seconds. Extra gauges, such as the rate limit
// gate's tracked key count, can be attached with [Exporter.WithGauge].
// Nothing is registered globally; callers mount [Exporter.Handler].
package prometheus
