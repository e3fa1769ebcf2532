package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valet_dispatches_total",
			Help: "Total number of dispatched messages",
		},
		[]string{"category", "outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "valet_dispatch_duration_seconds",
			Help: "End-to-end dispatch duration in seconds",
		},
		[]string{"category"},
	)

	RunPolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "valet_run_polls_total",
			Help: "Total number of run status polls",
		},
	)

	ToolExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valet_tool_executions_total",
			Help: "Total number of tool call executions",
		},
		[]string{"category", "tool"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "valet_active_sessions",
			Help: "Number of stored conversation sessions",
		},
	)

	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "valet_sessions_swept_total",
			Help: "Total number of sessions removed by the TTL sweep",
		},
	)
)
