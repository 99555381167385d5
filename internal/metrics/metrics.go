package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Orders accepted by the front end, by side.",
	}, []string{"side"})

	SalesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sales_completed_total",
		Help: "Sales orders fully filled and persisted.",
	})

	SittingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitting_duration_seconds",
		Help:    "Wall time of one matching sitting, excluding pacing.",
		Buckets: prometheus.DefBuckets,
	})
)

func Register() {
	prometheus.MustRegister(OrdersSubmitted)
	prometheus.MustRegister(SalesCompleted)
	prometheus.MustRegister(SittingDuration)
}
