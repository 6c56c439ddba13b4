package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes used as the "outcome" label.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeStale     = "stale"
)

// Metrics holds the Prometheus collectors for feed synchronization.
type Metrics struct {
	FetchesTotal    *prometheus.CounterVec // labels: feed, outcome
	FetchDuration   *prometheus.HistogramVec
	RecordsDropped  *prometheus.CounterVec // labels: feed
	SnapshotEvents  prometheus.Gauge
	StreamClients   prometheus.Gauge
	ViewComputation prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "fetches_total",
			Help:      "Feed fetches by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quake_feed",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of feed requests that ran to completion.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"feed"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "records_dropped_total",
			Help:      "Feed records dropped because no id could be extracted.",
		}, []string{"feed"}),
		SnapshotEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "snapshot_events",
			Help:      "Number of events in the current snapshot.",
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "stream_clients",
			Help:      "Connected state stream clients.",
		}),
		ViewComputation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_feed",
			Name:      "view_compute_duration_seconds",
			Help:      "Time to filter, sort and bucket one derived view.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.RecordsDropped,
		m.SnapshotEvents,
		m.StreamClients,
		m.ViewComputation,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
