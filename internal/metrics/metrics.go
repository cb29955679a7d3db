package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DataOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_data_operations_total",
			Help: "Data access operations by backend, entity, operation and outcome",
		},
		[]string{"backend", "entity", "op", "outcome"},
	)

	DataOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_data_operation_duration_seconds",
			Help:    "Duration of data access operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	DraftSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_draft_saves_total",
			Help: "Explicit draft saves by outcome",
		},
		[]string{"outcome"},
	)

	SignIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_sign_ins_total",
			Help: "Sign-in attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "planner_sessions_active",
			Help: "Number of open user sessions",
		},
	)
)

// ObserveData records one data access call.
func ObserveData(backend, entity, op string, start time.Time, err error) {
	DataOperations.WithLabelValues(backend, entity, op, outcomeLabel(err)).Inc()
	DataOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

// ObserveDegraded records a write that fell back to a failing local store.
func ObserveDegraded(backend, entity, op string, start time.Time) {
	DataOperations.WithLabelValues(backend, entity, op, "degraded").Inc()
	DataOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveSignIn records one sign-in attempt.
func ObserveSignIn(method string, err error) {
	SignIns.WithLabelValues(method, outcomeLabel(err)).Inc()
}
