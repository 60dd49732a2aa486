// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trous_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trous_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WorkflowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trous_workflow_transitions_total",
			Help: "Applied workflow state transitions",
		},
		[]string{"entity", "from", "to"},
	)

	WorkflowRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trous_workflow_rejections_total",
			Help: "Workflow transitions rejected by a guard, by error code",
		},
		[]string{"entity", "code"},
	)

	ScreeningChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trous_screening_checks_total",
			Help: "Sanctions/PEP screening checks by type and outcome",
		},
		[]string{"screening_type", "status"},
	)

	RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trous_rate_limit_hits_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limited_by", "endpoint"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trous_events_published_total",
			Help: "Workflow events published to the message bus",
		},
		[]string{"topic", "result"},
	)

	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trous_database_connections",
			Help: "Database pool connections by state",
		},
		[]string{"state"},
	)
)

// GinMiddleware records request count and latency keyed by the matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
