// Package observability provides metrics and tracing for the endpoint core.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Prometheus configuration
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)
	MetricsPort int    // Port for metrics server (default: 9090)

	// Metric options
	Namespace        string    // Prometheus namespace (default: mcp_endpoint)
	HistogramBuckets []float64 // Custom histogram buckets for latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels
}

// MetricsProvider records endpoint-level correlation metrics
type MetricsProvider interface {
	// Outbound side
	RecordRequest(method, outcome string, duration time.Duration)
	RecordNotificationSent(method string)
	PendingCallsInc()
	PendingCallsDec()

	// Inbound side
	RecordInboundRequest(method, outcome string, duration time.Duration)
	RecordInboundNotification(method string)

	// Correlation anomalies (non-fatal by design)
	RecordStrayResponse()
	RecordDroppedProgress()
	RecordProtocolError(kind string)

	// Progress traffic
	RecordProgress(direction string)

	// Management
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Request outcome label values
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Progress direction label values
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config   MetricsConfig
	registry *prometheus.Registry
	server   *http.Server

	requestDuration        *prometheus.HistogramVec
	requestTotal           *prometheus.CounterVec
	inboundRequestDuration *prometheus.HistogramVec
	inboundRequestTotal    *prometheus.CounterVec
	notificationTotal      *prometheus.CounterVec
	pendingCalls           prometheus.Gauge
	strayResponseTotal     prometheus.Counter
	droppedProgressTotal   prometheus.Counter
	protocolErrorTotal     *prometheus.CounterVec
	progressTotal          *prometheus.CounterVec
}

// NewMetricsProvider creates a new Prometheus metrics provider
func NewMetricsProvider(config MetricsConfig) (*PrometheusMetricsProvider, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp_endpoint"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if len(config.HistogramBuckets) == 0 {
		config.HistogramBuckets = prometheus.DefBuckets
	}

	p := &PrometheusMetricsProvider{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	p.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Name:        "request_duration_seconds",
		Help:        "Duration of outbound requests from send to resolution",
		Buckets:     config.HistogramBuckets,
		ConstLabels: config.ConstLabels,
	}, []string{"method", "outcome"})

	p.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "requests_total",
		Help:        "Total outbound requests by method and outcome",
		ConstLabels: config.ConstLabels,
	}, []string{"method", "outcome"})

	p.inboundRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Name:        "inbound_request_duration_seconds",
		Help:        "Duration of inbound request dispatch",
		Buckets:     config.HistogramBuckets,
		ConstLabels: config.ConstLabels,
	}, []string{"method", "outcome"})

	p.inboundRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "inbound_requests_total",
		Help:        "Total inbound requests by method and outcome",
		ConstLabels: config.ConstLabels,
	}, []string{"method", "outcome"})

	p.notificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "notifications_total",
		Help:        "Total notifications by direction and method",
		ConstLabels: config.ConstLabels,
	}, []string{"direction", "method"})

	p.pendingCalls = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   config.Namespace,
		Name:        "pending_calls",
		Help:        "Outbound requests currently awaiting a correlated response",
		ConstLabels: config.ConstLabels,
	})

	p.strayResponseTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "stray_responses_total",
		Help:        "Responses that matched no pending call",
		ConstLabels: config.ConstLabels,
	})

	p.droppedProgressTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "dropped_progress_total",
		Help:        "Progress notifications dropped for unknown or resolved tokens",
		ConstLabels: config.ConstLabels,
	})

	p.protocolErrorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "protocol_errors_total",
		Help:        "Non-fatal protocol errors by kind",
		ConstLabels: config.ConstLabels,
	}, []string{"kind"})

	p.progressTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "progress_notifications_total",
		Help:        "Progress notifications by direction",
		ConstLabels: config.ConstLabels,
	}, []string{"direction"})

	collectors := []prometheus.Collector{
		p.requestDuration, p.requestTotal,
		p.inboundRequestDuration, p.inboundRequestTotal,
		p.notificationTotal, p.pendingCalls,
		p.strayResponseTotal, p.droppedProgressTotal,
		p.protocolErrorTotal, p.progressTotal,
	}
	for _, c := range collectors {
		if err := p.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return p, nil
}

// RecordRequest records a completed outbound request
func (p *PrometheusMetricsProvider) RecordRequest(method, outcome string, duration time.Duration) {
	p.requestTotal.WithLabelValues(method, outcome).Inc()
	p.requestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

// RecordNotificationSent records an outbound notification
func (p *PrometheusMetricsProvider) RecordNotificationSent(method string) {
	p.notificationTotal.WithLabelValues(DirectionOutbound, method).Inc()
}

// PendingCallsInc increments the pending-calls gauge
func (p *PrometheusMetricsProvider) PendingCallsInc() {
	p.pendingCalls.Inc()
}

// PendingCallsDec decrements the pending-calls gauge
func (p *PrometheusMetricsProvider) PendingCallsDec() {
	p.pendingCalls.Dec()
}

// RecordInboundRequest records a dispatched inbound request
func (p *PrometheusMetricsProvider) RecordInboundRequest(method, outcome string, duration time.Duration) {
	p.inboundRequestTotal.WithLabelValues(method, outcome).Inc()
	p.inboundRequestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

// RecordInboundNotification records a dispatched inbound notification
func (p *PrometheusMetricsProvider) RecordInboundNotification(method string) {
	p.notificationTotal.WithLabelValues(DirectionInbound, method).Inc()
}

// RecordStrayResponse records a response that matched no pending call
func (p *PrometheusMetricsProvider) RecordStrayResponse() {
	p.strayResponseTotal.Inc()
}

// RecordDroppedProgress records a progress notification with no live token
func (p *PrometheusMetricsProvider) RecordDroppedProgress() {
	p.droppedProgressTotal.Inc()
}

// RecordProtocolError records a non-fatal protocol error
func (p *PrometheusMetricsProvider) RecordProtocolError(kind string) {
	p.protocolErrorTotal.WithLabelValues(kind).Inc()
}

// RecordProgress records progress traffic in either direction
func (p *PrometheusMetricsProvider) RecordProgress(direction string) {
	p.progressTotal.WithLabelValues(direction).Inc()
}

// Start launches the metrics HTTP server
func (p *PrometheusMetricsProvider) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(p.config.MetricsPath, promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))

	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", p.config.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics are auxiliary; a failed metrics server never takes
			// down the endpoint.
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics HTTP server
func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		return p.server.Shutdown(ctx)
	}
	return nil
}

// Registry exposes the underlying registry, mainly for tests
func (p *PrometheusMetricsProvider) Registry() *prometheus.Registry {
	return p.registry
}

// NoopMetrics discards all measurements. It is the default for endpoints
// constructed without an explicit metrics provider.
type NoopMetrics struct{}

// NewNoopMetrics returns a MetricsProvider that discards everything.
func NewNoopMetrics() *NoopMetrics { return &NoopMetrics{} }

func (*NoopMetrics) RecordRequest(string, string, time.Duration)        {}
func (*NoopMetrics) RecordNotificationSent(string)                      {}
func (*NoopMetrics) PendingCallsInc()                                   {}
func (*NoopMetrics) PendingCallsDec()                                   {}
func (*NoopMetrics) RecordInboundRequest(string, string, time.Duration) {}
func (*NoopMetrics) RecordInboundNotification(string)                   {}
func (*NoopMetrics) RecordStrayResponse()                               {}
func (*NoopMetrics) RecordDroppedProgress()                             {}
func (*NoopMetrics) RecordProtocolError(string)                         {}
func (*NoopMetrics) RecordProgress(string)                              {}
func (*NoopMetrics) Start(context.Context) error                        { return nil }
func (*NoopMetrics) Shutdown(context.Context) error                     { return nil }
