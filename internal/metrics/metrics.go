package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values for lifecycle transitions.
const (
	OutcomeOK            = "ok"
	OutcomeValidation    = "validation"
	OutcomeForbidden     = "forbidden"
	OutcomeNotFound      = "not_found"
	OutcomeInvalidTarget = "invalid_target"
	OutcomeConflict      = "conflict"
	OutcomeError         = "error"
)

var transitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "repair_request_transitions_total",
		Help: "Total number of request lifecycle operations by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(transitionsTotal)
}

// ObserveTransition records the outcome of a lifecycle operation.
func ObserveTransition(operation, outcome string) {
	transitionsTotal.WithLabelValues(operation, outcome).Inc()
}
