// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported at /metrics
type Metrics struct {
	ReservationsCreated  prometheus.Counter
	Transitions          *prometheus.CounterVec
	InsufficientStock    prometheus.Counter
	LedgerMutations      *prometheus.CounterVec
	LedgerConflicts      prometheus.Counter
	SweepProcessed       *prometheus.CounterVec
	SweepDuration        *prometheus.HistogramVec
	NotificationsDropped prometheus.Counter
	NotificationsFailed  *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// A nil registerer leaves them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReservationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medreserve",
			Name:      "reservations_created_total",
			Help:      "Reservations created.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medreserve",
			Name:      "reservation_transitions_total",
			Help:      "Reservation status transitions by target status.",
		}, []string{"status"}),
		InsufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medreserve",
			Name:      "insufficient_stock_total",
			Help:      "Reservation attempts rejected for lack of stock.",
		}),
		LedgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medreserve",
			Name:      "ledger_mutations_total",
			Help:      "Inventory ledger mutations by movement type.",
		}, []string{"type"}),
		LedgerConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medreserve",
			Name:      "ledger_conflicts_total",
			Help:      "Guarded ledger updates that lost a race and were retried.",
		}),
		SweepProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medreserve",
			Name:      "sweep_items_total",
			Help:      "Items handled by background sweeps by job and outcome.",
		}, []string{"job", "outcome"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medreserve",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of background sweeps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medreserve",
			Name:      "notifications_dropped_total",
			Help:      "Notification events dropped because the dispatch queue was full.",
		}),
		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medreserve",
			Name:      "notifications_failed_total",
			Help:      "Notification deliveries that failed by gateway.",
		}, []string{"gateway"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ReservationsCreated,
			m.Transitions,
			m.InsufficientStock,
			m.LedgerMutations,
			m.LedgerConflicts,
			m.SweepProcessed,
			m.SweepDuration,
			m.NotificationsDropped,
			m.NotificationsFailed,
		)
	}

	return m
}

// Noop returns unregistered collectors
func Noop() *Metrics {
	return New(nil)
}
