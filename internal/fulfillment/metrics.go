package fulfillment

import "github.com/prometheus/client_golang/prometheus"

var (
	// sessionsTotal counts finished sessions by method and outcome
	// (confirmed, exhausted, cancelled, aborted).
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_sessions_total",
			Help: "Payment sessions by method and terminal outcome.",
		},
		[]string{"method", "outcome"},
	)

	// sessionsActive gauges sessions currently registered.
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_payment_sessions_active",
			Help: "Payment sessions currently in flight.",
		},
	)

	// checkAttempts records how many status checks a session needed.
	checkAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_payment_check_attempts",
			Help:    "Status checks performed per finished session.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1200},
		},
	)
)

func init() {
	prometheus.MustRegister(sessionsTotal, sessionsActive, checkAttempts)
}
