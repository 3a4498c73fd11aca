package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FailuresTotal tracks intercepted failures by decision
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safely_failures_total",
			Help: "Total number of intercepted failures",
		},
		[]string{"decision"},
	)

	// ThrottledTotal tracks reports dropped by the throttle ledger
	ThrottledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safely_throttled_total",
			Help: "Total number of reports suppressed by throttling",
		},
	)

	// ReportsTotal tracks reports accepted by the reporter
	ReportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safely_reports_total",
			Help: "Total number of failures handed to the reporter",
		},
	)

	// ReporterFailuresTotal tracks reporter errors diverted to the fail-safe line
	ReporterFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safely_reporter_failures_total",
			Help: "Total number of reporter failures written to the fail-safe channel",
		},
	)

	// LedgerErrorsTotal tracks throttle backend errors that failed open
	LedgerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safely_ledger_errors_total",
			Help: "Total number of throttle ledger backend errors",
		},
		[]string{"backend"},
	)
)
