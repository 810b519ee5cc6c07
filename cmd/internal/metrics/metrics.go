// Package metrics holds the process-wide Prometheus collectors. Collectors
// live here, outside the packages that increment them, to keep the dependency
// graph acyclic (app -> api -> session -> metrics).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts served requests by method and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promodesk",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served.",
	}, []string{"method", "status"})

	// LoginsTotal counts login attempts by result
	// (success, invalid_credentials, error).
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promodesk",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	// RotationsTotal counts successful refresh-token rotations.
	RotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "promodesk",
		Subsystem: "auth",
		Name:      "refresh_rotations_total",
		Help:      "Successful refresh-token rotations.",
	})

	// SweepDeletedTotal counts token records removed by the expiry sweep.
	SweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "promodesk",
		Subsystem: "auth",
		Name:      "sweep_deleted_rows_total",
		Help:      "Expired token records deleted by the background sweep.",
	})

	// SweepFailuresTotal counts failed sweep runs.
	SweepFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "promodesk",
		Subsystem: "auth",
		Name:      "sweep_failures_total",
		Help:      "Background sweep runs that failed.",
	})

	// AuditWriteFailuresTotal counts audit-log inserts that failed.
	AuditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "promodesk",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Audit-log inserts that failed.",
	})
)
