package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request. Probe endpoints log at
// debug so they don't drown the rest.
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip", c.ClientIP(),
		}

		switch c.FullPath() {
		case "/healthz", "/metrics":
			s.log.Debug("http request", fields...)
		default:
			s.log.Info("http request", fields...)
		}
	}
}

// requestMetrics records the request counter and latency histogram
func (s *HTTPServer) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		s.metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
