package middleware

import (
	"strconv"
	"time"

	"soa-backend/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request latency by route pattern, not raw path, so
// path parameters don't explode label cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		metrics.APILatency.WithLabelValues(c.Method(), path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
