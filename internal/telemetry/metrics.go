// Package telemetry defines the process-wide Prometheus metrics
// SPEC_FULL.md's ambient-observability expansion calls for: query outcome
// counts, render/backend latency histograms, CTE fan-out per query, and
// Bolt session counts. A single Metrics value is constructed once at
// startup and threaded through the HTTP and Bolt services by reference —
// no package-level global registry, so tests can construct an isolated
// instance per case.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/histogram this process exports.
type Metrics struct {
	QueriesTotal      *prometheus.CounterVec
	RenderLatency     prometheus.Histogram
	BackendLatency    prometheus.Histogram
	CTECountPerQuery  prometheus.Histogram
	BoltSessionsTotal prometheus.Counter
	BoltSessionsOpen  prometheus.Gauge
}

// New registers every metric against reg and returns the bundle. Passing
// a fresh prometheus.NewRegistry() per test keeps test runs from
// colliding on the default global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clickgraph",
			Name:      "queries_total",
			Help:      "Total compiled queries, labeled by outcome kind (ok or a cgerrors.Kind string).",
		}, []string{"outcome"}),
		RenderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clickgraph",
			Name:      "render_latency_seconds",
			Help:      "Time spent compiling a Cypher query into SQL (C2-C6).",
			Buckets:   prometheus.DefBuckets,
		}),
		BackendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clickgraph",
			Name:      "backend_latency_seconds",
			Help:      "Time spent executing rendered SQL against the backend.",
			Buckets:   prometheus.DefBuckets,
		}),
		CTECountPerQuery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clickgraph",
			Name:      "cte_count_per_query",
			Help:      "Number of CTEs rendered per compiled query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		BoltSessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clickgraph",
			Name:      "bolt_sessions_total",
			Help:      "Total Bolt connections accepted since process start.",
		}),
		BoltSessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clickgraph",
			Name:      "bolt_sessions_open",
			Help:      "Currently open Bolt connections.",
		}),
	}

	reg.MustRegister(
		m.QueriesTotal,
		m.RenderLatency,
		m.BackendLatency,
		m.CTECountPerQuery,
		m.BoltSessionsTotal,
		m.BoltSessionsOpen,
	)
	return m
}
