package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "registration_analytics"

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is a valid no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheEvictions  prometheus.Counter
	cacheInvalid    prometheus.Counter
	cacheFailures   prometheus.Counter
	rejected        *prometheus.CounterVec
	duplicates      prometheus.Counter
	accepted        prometheus.Counter
	snapshotVersion prometheus.Gauge
	buildDuration   prometheus.Histogram
	queryDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total metrics cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total metrics cache misses.",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total metrics cache entries evicted for capacity or TTL.",
		}),
		cacheInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Total metrics cache entries dropped by a snapshot change.",
		}),
		cacheFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_compute_failures_total",
			Help:      "Total failed metric computations.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      "Total raw records rejected during normalization, by reason.",
		}, []string{"reason"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_duplicate_total",
			Help:      "Total records collapsed by deduplication.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_accepted_total",
			Help:      "Total records that made it into a snapshot.",
		}),
		snapshotVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_version",
			Help:      "Version of the active snapshot.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_build_duration_seconds",
			Help:      "Histogram of snapshot build durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Histogram of metric query durations by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.cacheHits,
		m.cacheMisses,
		m.cacheEvictions,
		m.cacheInvalid,
		m.cacheFailures,
		m.rejected,
		m.duplicates,
		m.accepted,
		m.snapshotVersion,
		m.buildDuration,
		m.queryDuration,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) CacheEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheEvictions.Add(float64(n))
}

func (m *Metrics) CacheInvalidated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheInvalid.Add(float64(n))
}

func (m *Metrics) CacheFailure() {
	if m == nil {
		return
	}
	m.cacheFailures.Inc()
}

// SnapshotBuilt records the outcome of one ingestion run
func (m *Metrics) SnapshotBuilt(version int64, accepted, duplicates int, rejected map[string]int, seconds float64) {
	if m == nil {
		return
	}
	m.snapshotVersion.Set(float64(version))
	m.accepted.Add(float64(accepted))
	m.duplicates.Add(float64(duplicates))
	for reason, n := range rejected {
		m.rejected.WithLabelValues(reason).Add(float64(n))
	}
	m.buildDuration.Observe(seconds)
}

func (m *Metrics) QueryObserved(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(outcome).Observe(seconds)
}
