package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		callbacksTotal,
		reconciliationsTotal,
		enrollmentsTotal,
		notificationsTotal,
		heldForReview,
	)
}

var (
	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Inbound gateway callbacks by provider and handling result.",
		},
		[]string{"provider", "result"},
	)

	reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciliations_total",
			Help: "Reconciliation outcomes by source (webhook/poll/job/registration).",
		},
		[]string{"source", "outcome"},
	)

	enrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_grants_total",
			Help: "Enrollment grant attempts; created=false means the row already existed.",
		},
		[]string{"created"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_notifications_total",
			Help: "Payment confirmation notifications by status (sent/failed).",
		},
		[]string{"status"},
	)

	heldForReview = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payments_held_for_review",
			Help: "Pending records held for manual review after an unknown result code.",
		},
	)
)

func IncCallback(provider, result string) {
	callbacksTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}

func IncReconciliation(source, outcome string) {
	reconciliationsTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func IncEnrollmentGrant(created bool) {
	label := "false"
	if created {
		label = "true"
	}
	enrollmentsTotal.WithLabelValues(label).Inc()
}

func IncNotification(status string) {
	notificationsTotal.WithLabelValues(norm(status)).Inc()
}

func SetHeldForReview(count int) {
	heldForReview.Set(float64(count))
}
