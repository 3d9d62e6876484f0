// Package middleware contains the shared Gin middleware of the HTTP layer.
//
// This file instruments HTTP traffic with Prometheus. Labels are limited to
// method, registered route, and status code to keep cardinality bounded; raw
// URL paths are used only when no route matched.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// Status is omitted from the latency histogram to keep its cardinality low.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	idempotentReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_publish_replays_total",
			Help: "Publish requests served from a recorded idempotent outcome.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, idempotentReplays)
}

// Metrics instruments each request with the collectors above. Pair it with a
// /metrics route serving promhttp.Handler().
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if IsReplay(c) {
			idempotentReplays.Inc()
		}
	}
}
