// Package metrics holds the prometheus collectors for evaluation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_runs_total",
			Help: "Evaluation runs by outcome",
		},
		[]string{"outcome"},
	)

	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_evaluations_total",
			Help: "Evaluation rows recorded by status",
		},
		[]string{"status"},
	)

	providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judge_provider_request_duration_seconds",
			Help:    "Latency of model provider calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"model", "result"},
	)
)

// Run outcomes.
const (
	RunOK          = "ok"
	RunConfigError = "config_error"
	RunStoreError  = "store_error"
)

func ObserveRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

func ObserveEvaluation(status string) {
	evaluationsTotal.WithLabelValues(status).Inc()
}

func ObserveProviderCall(model string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	providerLatency.WithLabelValues(model, result).Observe(d.Seconds())
}
