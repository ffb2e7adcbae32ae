package middleware

import (
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// TraceIDHeader carries the trace id in both directions so the join
// frontend can stitch its own logs to ours.
const TraceIDHeader = "X-SOA-Trace-Id"

// Tracing reuses a well-formed incoming trace id or mints a new one, then
// echoes it on the response.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(TraceIDHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.New().String()
		}
		c.Locals(response.TraceIDLocal, traceID)
		c.Set(TraceIDHeader, traceID)
		return c.Next()
	}
}

// GetTraceID returns the trace ID from context.
func GetTraceID(c *fiber.Ctx) string {
	if id, ok := c.Locals(response.TraceIDLocal).(string); ok {
		return id
	}
	return ""
}
