package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsInitiatedTotal,
		paymentsRevenueTotal,
		gatewayRequestsTotal,
	)
}

var (
	paymentsInitiatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Checkout attempts by plan.",
		},
		[]string{"plan"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Total requested value of confirmed payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_requests_total",
			Help: "Outbound gateway calls by operation and result.",
		},
		[]string{"op", "result"},
	)
)

func IncPaymentInitiated(plan string) {
	paymentsInitiatedTotal.WithLabelValues(norm(plan)).Inc()
}

func AddPaymentRevenue(currency string, amount float64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount)
}

func IncGatewayRequest(op, result string) {
	gatewayRequestsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
