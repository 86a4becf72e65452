package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

// MetricsMiddleware records request counts and latencies per route template.
type MetricsMiddleware struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	streaming       map[string]bool
}

func NewMetricsMiddleware(requestsTotal *prometheus.CounterVec, requestDuration *prometheus.HistogramVec) *MetricsMiddleware {
	return &MetricsMiddleware{
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		streaming:       make(map[string]bool),
	}
}

// WithStreamingRoutes excludes long-lived routes, such as server-sent event streams, from
// the latency histogram. They are still counted.
func (m *MetricsMiddleware) WithStreamingRoutes(routes ...string) *MetricsMiddleware {
	for _, r := range routes {
		m.streaming[r] = true
	}
	return m
}

// CollectHTTPMetrics labels by route template so path parameters such as cache keys do
// not create new series.
func (m *MetricsMiddleware) CollectHTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" || route == "/*" {
				route = unmatchedRoute
			}
			method := c.Request().Method

			m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			if !m.streaming[route] {
				m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			}
			return err
		}
	}
}
