package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Slice dispatch metrics
	SlicesDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aaesync_slices_dispatched_total",
			Help: "Total number of schedule slices dispatched, by work item kind",
		},
		[]string{"kind"},
	)

	SlicesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aaesync_slices_skipped_total",
			Help: "Total number of overdue slices skipped by the dispatcher",
		},
	)

	SchedulePlansGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aaesync_schedule_plans_generated_total",
			Help: "Total number of fresh 24h schedule plans generated",
		},
	)

	// Exchange metrics
	ExchangesStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aaesync_exchanges_started_total",
			Help: "Total number of AAE exchanges started, by work item kind",
		},
		[]string{"kind"},
	)

	ExchangesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aaesync_exchanges_rejected_total",
			Help: "Total number of work items rejected before starting an exchange, by reason",
		},
		[]string{"reason"},
	)

	ExchangesCrashedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aaesync_exchanges_crashed_total",
			Help: "Total number of exchanges that never replied before the crash timeout",
		},
	)

	ExchangeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aaesync_exchange_duration_seconds",
			Help:    "Time from exchange start to reply_complete, in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)

	// Repair decider metrics
	RepairsQueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aaesync_repairs_queued_total",
			Help: "Total number of source-ahead keys requeued for re-replication",
		},
	)

	SinkAheadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aaesync_sink_ahead_total",
			Help: "Total number of divergences where the sink vector clock dominated the source",
		},
	)

	// Coordinator state metrics
	CoordinatorPaused = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aaesync_coordinator_paused",
			Help: "1 if the coordinator is currently paused, 0 otherwise",
		},
	)
)

func init() {
	prometheus.MustRegister(SlicesDispatchedTotal)
	prometheus.MustRegister(SlicesSkippedTotal)
	prometheus.MustRegister(SchedulePlansGeneratedTotal)
	prometheus.MustRegister(ExchangesStartedTotal)
	prometheus.MustRegister(ExchangesRejectedTotal)
	prometheus.MustRegister(ExchangesCrashedTotal)
	prometheus.MustRegister(ExchangeDuration)
	prometheus.MustRegister(RepairsQueuedTotal)
	prometheus.MustRegister(SinkAheadTotal)
	prometheus.MustRegister(CoordinatorPaused)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
