package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyst_dispatches_total",
			Help: "Total number of prompt dispatches by outcome.",
		},
		[]string{"outcome"},
	)
	oracleRoundTripSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analyst_oracle_round_trip_seconds",
			Help:    "Oracle request latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	queryExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analyst_query_execution_seconds",
			Help:    "Warehouse query execution latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
	exportBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyst_export_bytes_total",
			Help: "Total exported result bytes by format.",
		},
		[]string{"format"},
	)
	archiveFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analyst_archive_failures_total",
			Help: "Total number of failed result archive writes.",
		},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "analyst_active_sessions",
			Help: "Current number of live chat sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		dispatchesTotal,
		oracleRoundTripSeconds,
		queryExecutionSeconds,
		exportBytesTotal,
		archiveFailuresTotal,
		activeSessions,
	)
}

func ObserveDispatch(outcome string, oracleElapsed time.Duration) {
	dispatchesTotal.WithLabelValues(outcome).Inc()
	oracleRoundTripSeconds.Observe(oracleElapsed.Seconds())
}

func ObserveQueryExecution(elapsed time.Duration) {
	queryExecutionSeconds.Observe(elapsed.Seconds())
}

func ObserveExport(format string, size int) {
	if size > 0 {
		exportBytesTotal.WithLabelValues(format).Add(float64(size))
	}
}

func IncrementArchiveFailure() {
	archiveFailuresTotal.Inc()
}

func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	activeSessions.Set(float64(count))
}
