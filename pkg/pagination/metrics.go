package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pagination runs.
var (
	pagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trades_pages_total",
		Help: "Total non-empty pages emitted",
	})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trades_records_total",
		Help: "Total records emitted",
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_pagination_runs_total",
		Help: "Finished pagination runs by outcome",
	}, []string{"outcome"})

	currentCursor = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trades_cursor",
		Help: "Last tid cursor requested",
	})
)
