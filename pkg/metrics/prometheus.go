package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	cycleDuration prometheus.Histogram
	snapshotAge   prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_fetches_total",
				Help: "Total number of upstream fetches by kind",
			},
			[]string{"kind", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockwatch_last_price",
				Help: "Last fetched price for a symbol",
			},
			[]string{"symbol"},
		),
		cycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockwatch_refresh_cycle_duration_seconds",
				Help:    "Duration of full refresh cycles in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 90, 120, 180, 300},
			},
		),
		snapshotAge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockwatch_snapshot_age_seconds",
				Help: "Age of the currently served snapshot in seconds",
			},
		),
	}
}

// RecordFetch records a completed upstream fetch.
func (r *Recorder) RecordFetch(kind, symbol string) {
	r.fetchesTotal.WithLabelValues(kind, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordCycleDuration records a refresh cycle's wall time.
func (r *Recorder) RecordCycleDuration(seconds float64) {
	r.cycleDuration.Observe(seconds)
}

// RecordSnapshotAge records the served snapshot's age.
func (r *Recorder) RecordSnapshotAge(seconds float64) {
	r.snapshotAge.Set(seconds)
}
