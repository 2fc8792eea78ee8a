package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vivars7/pathproxy/internal/proxy"
	"github.com/vivars7/pathproxy/internal/router"
)

// Metrics tracks forwarding metrics and serves them in Prometheus text format.
// It uses a custom prometheus.Registry for isolation and testability.
// Route labels carry the route pattern; patterns come from configuration,
// so label cardinality is bounded.
type Metrics struct {
	registry *prometheus.Registry

	forwardedTotal   *prometheus.CounterVec
	passthroughTotal *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	requestDuration  *prometheus.HistogramVec
	responseBytes    *prometheus.CounterVec
	streamErrors     *prometheus.CounterVec
	rateLimitHits    *prometheus.CounterVec
	routesConfigured prometheus.Gauge
	configReloads    *prometheus.CounterVec
	configReloadTime prometheus.Gauge
	buildInfo        *prometheus.GaugeVec
}

var _ proxy.Observer = (*Metrics)(nil)

// NewMetrics creates a new Metrics collector with a custom Prometheus registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		forwardedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathproxy_forwarded_requests_total",
			Help: "Total number of requests forwarded to an upstream origin.",
		}, []string{"route", "status"}),

		passthroughTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathproxy_passthrough_requests_total",
			Help: "Total number of requests handed to the fallback pipeline.",
		}, []string{"reason"}),

		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathproxy_upstream_failures_total",
			Help: "Total number of upstream transport failures.",
		}, []string{"route"}),

		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pathproxy_upstream_latency_seconds",
			Help:    "Time until upstream response headers arrived, in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pathproxy_forward_duration_seconds",
			Help:    "Total forwarded request duration including body streaming, in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		responseBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathproxy_response_bytes_total",
			Help: "Total response body bytes streamed to callers.",
		}, []string{"route"}),

		streamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathproxy_stream_errors_total",
			Help: "Total number of response bodies interrupted after headers were sent.",
		}, []string{"route"}),

		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathproxy_rate_limit_hits_total",
			Help: "Total number of requests rejected by a rate limit.",
		}, []string{"scope"}),

		routesConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pathproxy_routes",
			Help: "Number of routes in the active route table.",
		}),

		configReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathproxy_config_reloads_total",
			Help: "Total number of configuration reload attempts.",
		}, []string{"result"}),

		configReloadTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pathproxy_config_reload_timestamp_seconds",
			Help: "Unix timestamp of the last successful configuration reload.",
		}),

		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pathproxy_build_info",
			Help: "Build information about the pathproxy binary. Value is always 1.",
		}, []string{"version", "go_version"}),
	}

	reg.MustRegister(
		m.forwardedTotal,
		m.passthroughTotal,
		m.upstreamFailures,
		m.upstreamLatency,
		m.requestDuration,
		m.responseBytes,
		m.streamErrors,
		m.rateLimitHits,
		m.routesConfigured,
		m.configReloads,
		m.configReloadTime,
		m.buildInfo,
	)

	return m
}

// Forwarded implements proxy.Observer.
func (m *Metrics) Forwarded(ev proxy.ForwardEvent) {
	route := ev.Route.Pattern
	m.forwardedTotal.WithLabelValues(route, strconv.Itoa(ev.Status)).Inc()
	m.upstreamLatency.WithLabelValues(route).Observe(ev.UpstreamLatency.Seconds())
	m.requestDuration.WithLabelValues(route).Observe(ev.Duration.Seconds())
	m.responseBytes.WithLabelValues(route).Add(float64(ev.Bytes))
	if ev.CopyErr != nil {
		m.streamErrors.WithLabelValues(route).Inc()
	}
}

// UpstreamFailed implements proxy.Observer.
func (m *Metrics) UpstreamFailed(route router.Route, _ error) {
	m.upstreamFailures.WithLabelValues(route.Pattern).Inc()
}

// PassedThrough implements proxy.Observer.
func (m *Metrics) PassedThrough(reason string) {
	m.passthroughTotal.WithLabelValues(reason).Inc()
}

// RecordRateLimitHit records a request rejected by a limiter.
// scope is "global" or "client".
func (m *Metrics) RecordRateLimitHit(scope string) {
	m.rateLimitHits.WithLabelValues(scope).Inc()
}

// SetRoutes records the size of the active route table.
func (m *Metrics) SetRoutes(n int) {
	m.routesConfigured.Set(float64(n))
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.configReloads.WithLabelValues(result).Inc()
}

// SetConfigReloadTime records the timestamp of the last configuration reload.
func (m *Metrics) SetConfigReloadTime(t time.Time) {
	m.configReloadTime.Set(float64(t.Unix()))
}

// SetBuildInfo sets the build information gauge.
func (m *Metrics) SetBuildInfo(version, goVersion string) {
	m.buildInfo.WithLabelValues(version, goVersion).Set(1)
}

// Handler returns an HTTP handler that serves metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
