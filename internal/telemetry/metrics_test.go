package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.QueriesTotal.WithLabelValues("ok").Inc()
	m.RenderLatency.Observe(0.01)
	m.BackendLatency.Observe(0.02)
	m.CTECountPerQuery.Observe(3)
	m.BoltSessionsTotal.Inc()
	m.BoltSessionsOpen.Inc()
	m.BoltSessionsOpen.Dec()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		names[f.GetName()] = f
	}

	require.Contains(t, names, "clickgraph_queries_total")
	require.Contains(t, names, "clickgraph_render_latency_seconds")
	require.Contains(t, names, "clickgraph_backend_latency_seconds")
	require.Contains(t, names, "clickgraph_cte_count_per_query")
	require.Contains(t, names, "clickgraph_bolt_sessions_total")
	require.Contains(t, names, "clickgraph_bolt_sessions_open")

	queriesTotal := names["clickgraph_queries_total"]
	require.Len(t, queriesTotal.Metric, 1)
	require.Equal(t, "outcome", queriesTotal.Metric[0].Label[0].GetName())
	require.Equal(t, "ok", queriesTotal.Metric[0].Label[0].GetValue())
	require.Equal(t, float64(1), queriesTotal.Metric[0].GetCounter().GetValue())

	sessionsOpen := names["clickgraph_bolt_sessions_open"]
	require.Equal(t, float64(0), sessionsOpen.Metric[0].GetGauge().GetValue())
}

func TestNew_IsolatedRegistriesDoNotCollide(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	require.NotPanics(t, func() {
		New(reg1)
		New(reg2)
	})
}
