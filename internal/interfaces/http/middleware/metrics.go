package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/supplytrace/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"strconv"
)

// HTTPMetricsConfig selects where HTTP server metrics are recorded.
// Either sink may be nil.
type HTTPMetricsConfig struct {
	// MeterProvider exports OpenTelemetry instruments over OTLP
	MeterProvider *telemetry.MeterProvider
	// Registerer exposes Prometheus collectors on /metrics
	Registerer prometheus.Registerer
}

type otelHTTPMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	active   metric.Int64UpDownCounter
}

type promHTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func newOtelHTTPMetrics(meter metric.Meter) (*otelHTTPMetrics, error) {
	requests, err := telemetry.NewCounter(meter, "http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, "http_server_request_duration_seconds",
		"HTTP request latency distribution in seconds", "s", telemetry.HTTPDurationBuckets)
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &otelHTTPMetrics{requests: requests, duration: duration, active: active}, nil
}

func newPromHTTPMetrics(reg prometheus.Registerer) *promHTTPMetrics {
	factory := promauto.With(reg)
	return &promHTTPMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplytrace_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "supplytrace_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: telemetry.HTTPDurationBuckets,
		}, []string{"method", "route"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "supplytrace_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}
}

// HTTPMetrics records request count, latency and concurrency per route
func HTTPMetrics(cfg HTTPMetricsConfig) (gin.HandlerFunc, error) {
	var otelMetrics *otelHTTPMetrics
	if cfg.MeterProvider != nil && cfg.MeterProvider.IsEnabled() {
		m, err := newOtelHTTPMetrics(cfg.MeterProvider.Meter("http.server"))
		if err != nil {
			return nil, err
		}
		otelMetrics = m
	}
	var promMetrics *promHTTPMetrics
	if cfg.Registerer != nil {
		promMetrics = newPromHTTPMetrics(cfg.Registerer)
	}

	return func(c *gin.Context) {
		if otelMetrics == nil && promMetrics == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		start := time.Now()
		if otelMetrics != nil {
			otelMetrics.active.Add(ctx, 1)
		}
		if promMetrics != nil {
			promMetrics.inFlight.Inc()
		}

		c.Next()

		elapsed := time.Since(start)
		route := routePattern(c)
		method := c.Request.Method
		status := c.Writer.Status()

		if otelMetrics != nil {
			otelMetrics.active.Add(ctx, -1)
			routeAttrs := []attribute.KeyValue{
				telemetry.AttrHTTPMethod.String(method),
				telemetry.AttrHTTPRoute.String(route),
			}
			otelMetrics.requests.Inc(ctx, append(routeAttrs, telemetry.AttrHTTPStatusCode.Int(status))...)
			otelMetrics.duration.Record(ctx, elapsed.Seconds(), routeAttrs...)
		}
		if promMetrics != nil {
			promMetrics.inFlight.Dec()
			promMetrics.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			promMetrics.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
		}
	}, nil
}

// routePattern returns the matched route so ids do not explode label cardinality
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
