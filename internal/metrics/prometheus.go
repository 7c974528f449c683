package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	remoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "azathoth",
			Subsystem: "remote",
			Name:      "calls_total",
			Help:      "Calls to the remote agent API.",
		},
		[]string{"endpoint", "status"},
	)
	remoteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "azathoth",
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Remote agent API call duration in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)
	boundedOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "azathoth",
			Subsystem: "bounded",
			Name:      "operations_total",
			Help:      "Bounded operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)
	gotoRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "azathoth",
			Subsystem: "goto",
			Name:      "runs_total",
			Help:      "Goto runs by result.",
		},
		[]string{"result"},
	)
	gotoReplans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "azathoth",
			Subsystem: "goto",
			Name:      "replans_total",
			Help:      "Replacement paths requested after leaving the route.",
		},
	)
	phaseTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "azathoth",
			Subsystem: "controller",
			Name:      "phase_timeouts_total",
			Help:      "Convergence phases that ran out of time.",
		},
		[]string{"phase"},
	)
	missions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "azathoth",
			Subsystem: "mission",
			Name:      "finished_total",
			Help:      "Finished missions by kind and result.",
		},
		[]string{"kind", "succeeded"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(remoteCalls, remoteDuration, boundedOps, gotoRuns, gotoReplans, phaseTimeouts, missions)
	})
}

func RecordRemoteCall(endpoint string, status int, duration time.Duration) {
	RegisterMetrics()
	remoteCalls.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	remoteDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func RecordBounded(operation, outcome string) {
	RegisterMetrics()
	boundedOps.WithLabelValues(operation, outcome).Inc()
}

func RecordGoto(succeeded bool, replans int) {
	RegisterMetrics()
	result := "succeeded"
	if !succeeded {
		result = "failed"
	}
	gotoRuns.WithLabelValues(result).Inc()
	gotoReplans.Add(float64(replans))
}

func RecordPhaseTimeout(phase string) {
	RegisterMetrics()
	phaseTimeouts.WithLabelValues(phase).Inc()
}

func RecordMission(kind string, succeeded bool) {
	RegisterMetrics()
	missions.WithLabelValues(kind, strconv.FormatBool(succeeded)).Inc()
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
