package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(synthSubmitsTotal, synthPollLatencyMs, reconcileMatchesTotal) }

var synthSubmitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "synthesis_submits_total",
		Help: "Generation requests sent to the synthesis provider, by outcome.",
	},
	[]string{"outcome"}, // 'accepted', 'rejected'
)

var synthPollLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "synthesis_poll_latency_ms",
		Help:    "Operation status poll latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
	},
	[]string{"success"},
)

var reconcileMatchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bucket_reconcile_total",
		Help: "Bucket reconciliation passes, by result.",
	},
	[]string{"result"}, // 'match', 'none', 'error'
)

func IncSynthSubmit(outcome string) {
	synthSubmitsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObservePollLatency(ms int, success bool) {
	synthPollLatencyMs.WithLabelValues(strconv.FormatBool(success)).Observe(float64(ms))
}

func IncReconcile(result string) {
	reconcileMatchesTotal.WithLabelValues(norm(result)).Inc()
}
