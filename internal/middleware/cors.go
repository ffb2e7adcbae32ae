package middleware

import (
	"strings"

	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig holds CORS configuration. AllowedSuffix may list several
// comma-separated suffixes, e.g. ".soilofafrica.org,.soa-join.vercel.app".
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

func (cfg CORSConfig) suffixes() []string {
	var out []string
	for _, s := range strings.Split(cfg.AllowedSuffix, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CORS allows origins ending with one of the configured suffixes, localhost
// preflights, and requests carrying the dev-password header.
func CORS(cfg CORSConfig) fiber.Handler {
	suffixes := cfg.suffixes()
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}
		if c.Method() == fiber.MethodOptions && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			setCORSHeaders(c, origin)
			return c.SendStatus(fiber.StatusNoContent)
		}
		lower := strings.ToLower(origin)
		for _, s := range suffixes {
			if strings.HasSuffix(lower, s) {
				setCORSHeaders(c, origin)
				return c.Next()
			}
		}
		if cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword {
			setCORSHeaders(c, origin)
			return c.Next()
		}
		return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
	}
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Headers", "Content-Type, dev-password, "+TraceIDHeader)
	c.Set("Access-Control-Expose-Headers", TraceIDHeader)
	c.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
}
