package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crimescope"

// Metrics holds the collectors of one crimescope process. A nil *Metrics is
// valid and records nothing, so callers never need a guard.
type Metrics struct {
	registry *prometheus.Registry

	queriesTotal    *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	snapshotRecords prometheus.Gauge
	snapshotGen     prometheus.Gauge
	reloadsTotal    *prometheus.CounterVec
	lastReloadTS    prometheus.Gauge
	loadDropped     prometheus.Gauge
	httpRequests    *prometheus.CounterVec
}

// New creates and registers every collector on reg. A nil reg gets a fresh
// private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{registry: reg}

	m.queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Report queries by outcome",
	}, []string{"status"})
	m.queryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Time spent computing a report",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_cache_hits_total",
		Help:      "Reports served from the cache",
	})
	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_cache_misses_total",
		Help:      "Report cache lookups that missed",
	})
	m.snapshotRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_records",
		Help:      "Records in the current snapshot",
	})
	m.snapshotGen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_generation",
		Help:      "Generation of the current snapshot",
	})
	m.reloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reloads_total",
		Help:      "Snapshot reloads by outcome",
	}, []string{"status"})
	m.lastReloadTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_reload_timestamp_seconds",
		Help:      "Unix timestamp of the last successful reload",
	})
	m.loadDropped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "load_dropped_rows",
		Help:      "Rows dropped as incomplete by the last load",
	})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})

	reg.MustRegister(
		m.queriesTotal, m.queryDuration, m.cacheHits, m.cacheMisses,
		m.snapshotRecords, m.snapshotGen, m.reloadsTotal, m.lastReloadTS,
		m.loadDropped, m.httpRequests,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveQuery records one report computation.
func (m *Metrics) ObserveQuery(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.queriesTotal.WithLabelValues(status).Inc()
	m.queryDuration.Observe(d.Seconds())
}

// CacheHit implements cache.Observer.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// CacheMiss implements cache.Observer.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

// ObserveReload records a reload attempt. records, generation and dropped
// are only applied on success.
func (m *Metrics) ObserveReload(records int, generation uint64, dropped int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.reloadsTotal.WithLabelValues("ok").Inc()
	m.snapshotRecords.Set(float64(records))
	m.snapshotGen.Set(float64(generation))
	m.loadDropped.Set(float64(dropped))
	m.lastReloadTS.Set(float64(time.Now().Unix()))
}

// ObserveHTTP counts one served request.
func (m *Metrics) ObserveHTTP(route, code string) {
	if m != nil {
		m.httpRequests.WithLabelValues(route, code).Inc()
	}
}
