package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		observationsTotal,
		subscriptionsGrantedTotal,
		subscriptionsExpiredTotal,
	)
}

// Observation outcomes. Keep the set closed so dashboards stay stable.
const (
	OutcomeApplied      = "applied"
	OutcomeGranted      = "granted"
	OutcomeTerminal     = "terminal"
	OutcomeUnknown      = "unknown_payment"
	OutcomeUnauthorized = "unauthorized"
	OutcomeMalformed    = "malformed"
	OutcomeError        = "error"
)

var (
	observationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_observations_total",
			Help: "Status observations by source (webhook/poll/sweep) and outcome.",
		},
		[]string{"source", "outcome"},
	)

	subscriptionsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_granted_total",
			Help: "Subscription grants/extensions by plan.",
		},
		[]string{"plan"},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions collapsed to none by the expiry sweep.",
		},
	)
)

func IncObservation(source, outcome string) {
	observationsTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func IncSubscriptionGranted(plan string) {
	subscriptionsGrantedTotal.WithLabelValues(norm(plan)).Inc()
}

func IncSubscriptionsExpired(n int) {
	subscriptionsExpiredTotal.Add(float64(n))
}
