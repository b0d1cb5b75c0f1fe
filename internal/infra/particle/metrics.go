package particle

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "particle_requests_total",
			Help: "Requests sent to the Particle cloud, by operation and HTTP status",
		},
		[]string{"operation", "code"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "particle_request_duration_seconds",
			Help:    "Latency of Particle cloud requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// MetricsCollectors returns collectors for the Particle client.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		requestsTotal,
		requestDuration,
	}
}
