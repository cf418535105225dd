package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/faceauth-service/internal/api/http/handlers"
	"github.com/spec-kit/faceauth-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Session *handlers.SessionHandler
	Face    *handlers.FaceHandler
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app fiber.Router, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	sessionGroup := app.Group("/session")
	sessionGroup.Get("/status", cfg.Session.Status)
	sessionGroup.Post("/login", cfg.Session.Login)
	sessionGroup.Post("/face-login", cfg.Session.FaceLogin)
	sessionGroup.Post("/resolve", cfg.Session.Resolve)
	sessionGroup.Post("/logout", cfg.Session.Logout)

	faceGroup := app.Group("/face")
	faceGroup.Post("/identify", cfg.Face.Identify)
}
