package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(recoverySweepsTotal, recoveryReconciledTotal) }

var recoverySweepsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "recovery_sweeps_total",
		Help: "Number of stuck-job recovery sweeps executed.",
	},
)

var recoveryReconciledTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "recovery_jobs_reconciled_total",
		Help: "Jobs completed via the recovery sweep instead of their poll loop.",
	},
)

func IncSweep() { recoverySweepsTotal.Inc() }

func AddSweepReconciled(n int) {
	if n > 0 {
		recoveryReconciledTotal.Add(float64(n))
	}
}
