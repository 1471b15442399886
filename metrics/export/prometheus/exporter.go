package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() forumguard.MetricsSnapshot
	AuditDropped() uint64
}

type gauge struct {
	name string
	help string
	read func() uint64
}

// Exporter renders engine metrics in Prometheus text exposition format.
type Exporter struct {
	source metricsSource
	gauges []gauge
}

// New returns an exporter reading from engine.
func New(engine *forumguard.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewFromSource returns an exporter reading from any snapshot source.
func NewFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// WithGauge adds a gauge read at render time, such as the number of keys
// the rate limit gate is tracking. Call it before serving.
func (p *Exporter) WithGauge(name, help string, read func() uint64) *Exporter {
	if read != nil {
		p.gauges = append(p.gauges, gauge{name: name, help: help, read: read})
	}
	return p
}

func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render returns the current exposition text, or "" when metrics are
// disabled and nothing has been recorded.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 && len(p.gauges) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)
	for _, def := range internaldefs.CounterDefs {
		sample(&b, def.Name, def.Help, "counter", snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		histogram(&b, def.Name, def.Help,
			internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID])))
	}
	sample(&b, "forumguard_audit_dropped_total", "Audit events dropped under dispatcher backpressure.", "counter", dropped)
	for _, g := range p.gauges {
		sample(&b, g.name, g.help, "gauge", g.read())
	}
	return b.String()
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func header(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, helpEscaper.Replace(help), name, kind)
}

func sample(w io.Writer, name, help, kind string, v uint64) {
	header(w, name, help, kind)
	fmt.Fprintf(w, "%s %d\n", name, v)
}

// histogram writes cumulative buckets. The engine keeps bucket counts only,
// so _sum is always zero.
func histogram(w io.Writer, name, help string, cum [8]uint64) {
	header(w, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, le, cum[i])
	}
	fmt.Fprintf(w, "%s_count %d\n%s_sum 0\n", name, cum[len(cum)-1], name)
}
