// Package metrics exposes Prometheus instrumentation for a worker
// process (SPEC_FULL.md §4.10): requests handled, dispatch latency,
// worker restarts, watchdog-forced exits, and buffer pool traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serverino",
			Subsystem: "worker",
			Name:      "requests_handled_total",
			Help:      "Total number of requests dispatched to a handler.",
		},
		[]string{"status"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "serverino",
			Subsystem: "worker",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent running the handler dispatch chain for one request.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	WorkerRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "serverino",
			Subsystem: "worker",
			Name:      "restarts_total",
			Help:      "Total number of times a worker process has been replaced.",
		},
	)

	WatchdogForcedExits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "serverino",
			Subsystem: "worker",
			Name:      "watchdog_forced_exits_total",
			Help:      "Total number of times the timeout watchdog synthesized a 504 and forced process exit.",
		},
	)

	BufferPoolGets = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "serverino",
			Subsystem: "buffer_pool",
			Name:      "gets_total",
			Help:      "Total number of buffer Get operations.",
		},
	)

	BufferPoolPuts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "serverino",
			Subsystem: "buffer_pool",
			Name:      "puts_total",
			Help:      "Total number of buffer Release operations.",
		},
	)
)

// Handler returns the http.Handler the host process mounts to expose
// the /metrics scrape endpoint (SPEC_FULL.md §4.10 "out of the
// worker's own control-socket surface").
func Handler() http.Handler {
	return promhttp.Handler()
}
