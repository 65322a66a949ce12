package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(videoJobsTotal, videoJobsInFlight) }

var videoJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "video_jobs_total",
		Help: "Total number of video generation jobs finished, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var videoJobsInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "video_jobs_in_flight",
		Help: "Number of jobs currently being polled.",
	},
)

func IncVideoJob(status string) {
	videoJobsTotal.WithLabelValues(norm(status)).Inc()
}

func JobStarted()  { videoJobsInFlight.Inc() }
func JobFinished() { videoJobsInFlight.Dec() }
