package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"loan-servicing-backend/internal/infrastructure/metrics"
)

// Metrics records request count and latency by route template, so path params do not explode cardinality.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			timer := prometheus.NewTimer(metrics.HTTPLatency.WithLabelValues(method, route))
			err := next(c)
			timer.ObserveDuration()

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
