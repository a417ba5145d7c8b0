package fbinary

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

type Metrics struct {
	lookups *prometheus.CounterVec
	entries prometheus.Gauge
}

// NewMetrics creates the resolver metrics and registers them with reg.
// A nil reg creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	return &Metrics{
		lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "lookups_total",
			Help:      "Number of operator resolutions by cache outcome.",
		}, []string{"result"}),
		entries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "cache_entries",
			Help:      "Number of resolved operator makers held in the cache.",
		}),
	}
}
