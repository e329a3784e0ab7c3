package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "intraday_dashboard"

// Recorder collects dashboard metrics on its own registry
type Recorder struct {
	registry        *prometheus.Registry
	upstream        *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	snapshots       *prometheus.CounterVec
	snapshotLatency prometheus.Histogram
	warnings        *prometheus.CounterVec
	lastClose       *prometheus.GaugeVec
	droppedOptions  prometheus.Counter
}

// New creates a recorder with Go runtime and process collectors registered
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		upstream: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Provider HTTP attempts by provider and status code",
			},
			[]string{"provider", "code"},
		),
		upstreamLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Provider HTTP attempt latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		snapshots: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_total",
				Help:      "Snapshot builds by result",
			},
			[]string{"result"},
		),
		snapshotLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_duration_seconds",
				Help:      "Time to fetch and compute one snapshot",
				Buckets:   prometheus.DefBuckets,
			},
		),
		warnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_warnings_total",
				Help:      "Snapshot warnings by kind",
			},
			[]string{"kind"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_close",
				Help:      "Latest close seen per symbol",
			},
			[]string{"symbol"},
		),
		droppedOptions: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "options_entries_dropped_total",
				Help:      "Malformed option snapshot entries skipped during aggregation",
			},
		),
	}
}

// ObserveRequest records one provider HTTP attempt
func (r *Recorder) ObserveRequest(provider, code string, elapsed time.Duration) {
	r.upstream.WithLabelValues(provider, code).Inc()
	r.upstreamLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordSnapshot records a snapshot build outcome ("ok" or "error")
func (r *Recorder) RecordSnapshot(result string, elapsed time.Duration) {
	r.snapshots.WithLabelValues(result).Inc()
	r.snapshotLatency.Observe(elapsed.Seconds())
}

// RecordWarning counts a snapshot warning
func (r *Recorder) RecordWarning(kind string) {
	r.warnings.WithLabelValues(kind).Inc()
}

// RecordLastClose records the latest close for a symbol
func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordDroppedOptions adds n skipped snapshot entries
func (r *Recorder) RecordDroppedOptions(n int) {
	r.droppedOptions.Add(float64(n))
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
