// Package metrics exposes spending engine telemetry through a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spending/internal/core"
)

const namespace = "spending"

type Collector struct {
	registry            *prometheus.Registry
	aggregations        *prometheus.CounterVec
	aggregationDuration *prometheus.HistogramVec
	activitiesEvaluated prometheus.Counter
	anomalies           *prometheus.CounterVec
	cacheRequests       *prometheus.CounterVec
	activitiesCreated   prometheus.Counter
	snapshots           *prometheus.CounterVec
	rateLimited         prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		aggregations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "queries_total",
			Help:      "Number of spending aggregations computed, by granularity.",
		}, []string{"granularity"}),
		aggregationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "duration_seconds",
			Help:      "Time spent fetching candidates and aggregating, by granularity.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"granularity"}),
		activitiesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "activities_evaluated_total",
			Help:      "Number of activities passed to the occurrence counter.",
		}),
		anomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "recurrence_anomalies_total",
			Help:      "Activities skipped because their recurrence could not be counted.",
		}, []string{"kind", "reason"}),
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Spend summary cache lookups, by result.",
		}, []string{"result"}),
		activitiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "created_total",
			Help:      "Number of activities created.",
		}),
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "snapshots_total",
			Help:      "Snapshot recomputations handled by the worker, by status.",
		}, []string{"status"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Write requests rejected by the per-client rate limit.",
		}),
	}
}

func (c *Collector) RecordAnomaly(kind core.RecurrenceKind, reason string) {
	if kind == "" {
		kind = "none"
	}
	c.anomalies.WithLabelValues(string(kind), reason).Inc()
}

func (c *Collector) ObserveAggregation(g core.Granularity, evaluated int, d time.Duration) {
	c.aggregations.WithLabelValues(string(g)).Inc()
	c.aggregationDuration.WithLabelValues(string(g)).Observe(d.Seconds())
	c.activitiesEvaluated.Add(float64(evaluated))
}

func (c *Collector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheRequests.WithLabelValues(result).Inc()
}

func (c *Collector) RecordActivityCreated() {
	c.activitiesCreated.Inc()
}

func (c *Collector) RecordSnapshot(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.snapshots.WithLabelValues(status).Inc()
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
