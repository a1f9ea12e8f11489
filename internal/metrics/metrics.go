// Package metrics exposes Prometheus metrics for the scheduling engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for availability queries and bookings.
type Metrics struct {
	// SlotQueriesTotal is the total number of availability queries.
	SlotQueriesTotal *prometheus.CounterVec

	// BookingsTotal is the total number of committed bookings by initial status.
	BookingsTotal *prometheus.CounterVec

	// SlotConflictsTotal is the number of commits lost to a concurrent booking.
	SlotConflictsTotal prometheus.Counter

	// StatusChangesTotal is the number of appointment status transitions.
	StatusChangesTotal *prometheus.CounterVec

	// ReschedulesTotal is the number of successful reschedules.
	ReschedulesTotal prometheus.Counter

	// CommitRetries is the number of retried commit attempts.
	CommitRetries prometheus.Counter
}

// NewMetrics creates and registers metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SlotQueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slot_queries_total",
				Help:      "Total number of availability queries",
			},
			[]string{"result"},
		),

		BookingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_total",
				Help:      "Total number of committed bookings",
			},
			[]string{"status"},
		),

		SlotConflictsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slot_conflicts_total",
				Help:      "Commits rejected because the slot was taken concurrently",
			},
		),

		StatusChangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_changes_total",
				Help:      "Total number of appointment status transitions",
			},
			[]string{"to"},
		),

		ReschedulesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reschedules_total",
				Help:      "Total number of successful reschedules",
			},
		),

		CommitRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commit_retries_total",
				Help:      "Total number of retried commit attempts",
			},
		),
	}
}

// IncSlotQuery records an availability query outcome ("ok", "closed", "error").
func (m *Metrics) IncSlotQuery(result string) {
	if m == nil {
		return
	}
	m.SlotQueriesTotal.WithLabelValues(result).Inc()
}

// IncBooking records a committed booking with its initial status.
func (m *Metrics) IncBooking(status string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(status).Inc()
}

// IncConflict records a commit lost to a concurrent booking.
func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.SlotConflictsTotal.Inc()
}

// IncStatusChange records a status transition.
func (m *Metrics) IncStatusChange(to string) {
	if m == nil {
		return
	}
	m.StatusChangesTotal.WithLabelValues(to).Inc()
}

// IncReschedule records a successful reschedule.
func (m *Metrics) IncReschedule() {
	if m == nil {
		return
	}
	m.ReschedulesTotal.Inc()
}

// IncCommitRetry records a retried commit attempt.
func (m *Metrics) IncCommitRetry() {
	if m == nil {
		return
	}
	m.CommitRetries.Inc()
}
