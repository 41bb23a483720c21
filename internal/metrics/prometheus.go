package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// Recorder implements dashboard.Metrics using Prometheus.
type Recorder struct {
	fetches     *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	cacheWrites *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// New creates a recorder whose collectors are registered with reg. A nil reg uses
// the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infonaytto_fetches_total",
				Help: "Total number of source fetches by result",
			},
			[]string{"kind", "result"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "infonaytto_fetch_duration_seconds",
				Help:    "Duration of source fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		cacheWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infonaytto_cache_writes_total",
				Help: "Total number of cache writes by result",
			},
			[]string{"kind", "result"},
		),
		lastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "infonaytto_last_success_timestamp_seconds",
				Help: "Unix time of the last successful fetch",
			},
			[]string{"kind"},
		),
	}
}

// ObserveFetch records one fetch. An empty reason means success.
func (r *Recorder) ObserveFetch(kind dashboard.Kind, reason dashboard.Reason, elapsed time.Duration) {
	result := "ok"
	if reason != "" {
		result = string(reason)
	} else {
		r.lastSuccess.WithLabelValues(string(kind)).SetToCurrentTime()
	}
	r.fetches.WithLabelValues(string(kind), result).Inc()
	r.latency.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ObserveCacheWrite records the outcome of a cache write.
func (r *Recorder) ObserveCacheWrite(kind dashboard.Kind, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.cacheWrites.WithLabelValues(string(kind), result).Inc()
}
