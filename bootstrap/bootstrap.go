package bootstrap

import (
	"soa-backend/internal/config"
	"soa-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless deployments (the api handler
// imports this package, not internal). The maintenance scheduler is not
// started here; a long-running instance from cmd/api owns it.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rt, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	return rt.App, nil
}
