package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(accessChecksTotal, tierCacheTotal)
}

var (
	accessChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_checks_total",
			Help: "Content access checks by result.",
		},
		[]string{"result"},
	)

	tierCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_cache_total",
			Help: "Subscription cache lookups by result (hit/miss).",
		},
		[]string{"result"},
	)
)

func IncAccessCheck(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	accessChecksTotal.WithLabelValues(result).Inc()
}

func IncTierCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	tierCacheTotal.WithLabelValues(result).Inc()
}
