package application

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK          = "ok"
	outcomeReprompt    = "reprompt"
	outcomeLinkAccount = "link_account"
	outcomeEnded       = "ended"

	labelUnknown = "unknown"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_turns_total",
			Help: "Voice turns handled, by intent and response kind",
		},
		[]string{"intent", "outcome"},
	)
	handlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_handler_errors_total",
			Help: "Errors turned into spoken failures, by kind",
		},
		[]string{"kind"},
	)
	storeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_session_store_failures_total",
			Help: "Failed persistent attribute loads and saves",
		},
		[]string{"op"},
	)
)

// MetricsCollectors returns the dispatcher's collectors.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		turnsTotal,
		handlerErrors,
		storeFailures,
	}
}

