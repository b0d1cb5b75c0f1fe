package alexa

import "github.com/prometheus/client_golang/prometheus"

var rejectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "alexa_rejected_requests_total",
		Help: "Inbound skill requests rejected before dispatch, by reason",
	},
	[]string{"reason"},
)

// MetricsCollectors returns collectors for the skill endpoint.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{rejectedTotal}
}
