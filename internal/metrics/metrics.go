// Package metrics implements the observability hooks on a private
// Prometheus registry. The CLI exposes it over /metrics in serve mode and
// can dump it to a node-exporter textfile after a one-shot run.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/vpcmap/pkg/observability"
)

const namespace = "vpcmap"

// Metrics collects build, render and cache events.
type Metrics struct {
	registry *prometheus.Registry

	builds         *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	scopes         prometheus.Gauge
	nodes          prometheus.Gauge
	edges          prometheus.Gauge
	dangling       prometheus.Gauge
	providerCalls  *prometheus.CounterVec
	providerTime   *prometheus.HistogramVec
	renders        *prometheus.CounterVec
	renderBytes    *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	cacheOps       *prometheus.CounterVec
	cacheBytes     *prometheus.CounterVec
}

var (
	_ observability.BuildHooks = (*Metrics)(nil)
	_ observability.CacheHooks = (*Metrics)(nil)
)

// New creates a Metrics with its own registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Number of topology builds by result.",
		}, []string{"result"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time taken to build a topology model.",
			Buckets:   prometheus.DefBuckets,
		}),
		scopes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_scopes",
			Help:      "Number of account/region pairs listed by the last build.",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_nodes",
			Help:      "Number of nodes in the last built model.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_edges",
			Help:      "Number of edges in the last built model.",
		}),
		dangling: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_dangling_peerings",
			Help:      "Peering connections seen from one side only in the last build.",
		}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Network listings by account, region and result.",
		}, []string{"account", "region", "result"}),
		providerTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Time taken to list the networks of one account/region.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"region"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Rendered artifacts by format and result.",
		}, []string{"format", "result"}),
		renderBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_bytes_total",
			Help:      "Bytes of rendered output by format.",
		}, []string{"format"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time taken to render one artifact.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes by key type and outcome.",
		}, []string{"key_type", "op"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"key_type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.builds,
		m.buildDuration,
		m.scopes,
		m.nodes,
		m.edges,
		m.dangling,
		m.providerCalls,
		m.providerTime,
		m.renders,
		m.renderBytes,
		m.renderDuration,
		m.cacheOps,
		m.cacheBytes,
	)
	return m
}

// Install registers m as the process-wide build and cache hooks.
func (m *Metrics) Install() {
	observability.SetBuildHooks(m)
	observability.SetCacheHooks(m)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values to path for the node exporter
// textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// =============================================================================
// observability.BuildHooks
// =============================================================================

func (m *Metrics) OnBuildStart(_ context.Context, scopes int) {
	m.scopes.Set(float64(scopes))
}

func (m *Metrics) OnProviderCall(_ context.Context, account, region string, d time.Duration, err error) {
	m.providerCalls.WithLabelValues(account, region, result(err)).Inc()
	m.providerTime.WithLabelValues(region).Observe(d.Seconds())
}

func (m *Metrics) OnBuildComplete(_ context.Context, nodes, edges, dangling int, d time.Duration, err error) {
	m.builds.WithLabelValues(result(err)).Inc()
	m.buildDuration.Observe(d.Seconds())
	if err != nil {
		return
	}
	m.nodes.Set(float64(nodes))
	m.edges.Set(float64(edges))
	m.dangling.Set(float64(dangling))
}

func (m *Metrics) OnRenderComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	m.renders.WithLabelValues(format, result(err)).Inc()
	m.renderDuration.WithLabelValues(format).Observe(d.Seconds())
	if err == nil {
		m.renderBytes.WithLabelValues(format).Add(float64(size))
	}
}

// =============================================================================
// observability.CacheHooks
// =============================================================================

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
