package cache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records parse cache activity.
type Metrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	LoadFailures  prometheus.Counter
	Invalidations prometheus.Counter
	Entries       prometheus.Gauge
	LoadDuration  prometheus.Histogram
}

// NewMetrics creates the cache metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emlfs",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Lookups served from a cached model",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emlfs",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Lookups that had to wait for a load",
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emlfs",
			Subsystem: "cache",
			Name:      "load_failures_total",
			Help:      "Source document loads that failed",
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emlfs",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Cached models dropped because the source changed or on request",
		}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emlfs",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of cached models",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emlfs",
			Subsystem: "cache",
			Name:      "load_duration_seconds",
			Help:      "Time spent reading and parsing a source document",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Hits, m.Misses, m.LoadFailures, m.Invalidations, m.Entries, m.LoadDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register cache metrics: %w", err)
		}
	}
	return m, nil
}
