package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"document-qa-platform/internal/telemetry"
)

// Tracing starts a server span per request via otelgin.
func Tracing() gin.HandlerFunc {
	return otelgin.Middleware("document-qa-platform")
}

// Metrics records request count and duration per route and status.
func Metrics(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
		)
		ctx := c.Request.Context()
		metrics.RequestCounter.Add(ctx, 1, attrs)
		metrics.RequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
