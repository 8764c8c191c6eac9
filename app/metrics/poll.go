package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(statusPollsTotal, statusPollLatency) }

var (
	statusPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_status_polls_total",
			Help: "Provider status polls by provider and result (ok/degraded/skipped/locked).",
		},
		[]string{"provider", "result"},
	)

	statusPollLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_status_poll_latency_ms",
			Help:    "Provider status poll latency in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2000, 4000, 8000},
		},
		[]string{"provider"},
	)
)

func ObserveStatusPoll(provider, result string, latency time.Duration) {
	statusPollsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
	if latency > 0 {
		statusPollLatency.WithLabelValues(norm(provider)).Observe(float64(latency.Milliseconds()))
	}
}
