package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	TrackedSessions    prometheus.Gauge
	WebhookEvents      *prometheus.CounterVec
	LookupFallbacks    *prometheus.CounterVec
	SweeperEvictions   prometheus.Counter
	OrdersArchived     prometheus.Counter
	StatusQueryLatency prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TrackedSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_sessions",
			Help:      "Number of checkout sessions currently held in the status store.",
		}),
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		LookupFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_fallbacks_total",
			Help:      "Pull-path provider lookups by derived result.",
		}, []string{"result"}),
		SweeperEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_evictions_total",
			Help:      "Session records evicted by the retention sweeper.",
		}),
		OrdersArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_archived_total",
			Help:      "Completed orders written to the archive.",
		}),
		StatusQueryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_query_latency_ms",
			Help:      "Latency of status queries in milliseconds, including pull-path lookups.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
}

func (m *Metrics) ObserveStatusQuery(d time.Duration) {
	m.StatusQueryLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
