package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultImported  = "imported"
	resultDuplicate = "duplicate"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

// Metrics holds the import counters of a Service. Each Service owns its own
// registry so several services (and tests) do not collide.
type Metrics struct {
	registry *prometheus.Registry
	imports  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates and registers the import metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridestats",
			Name:      "imports_total",
			Help:      "Number of activity imports grouped by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ridestats",
			Name:      "import_duration_seconds",
			Help:      "Time spent importing one activity file.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	m.registry.MustRegister(m.imports, m.duration)
	return m
}

// Registry exposes the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format to path,
// for a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) record(result string, started time.Time) {
	m.imports.WithLabelValues(result).Inc()
	m.duration.Observe(time.Since(started).Seconds())
}
