package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-agent/internal/api/http/handlers"
	"github.com/spec-kit/crm-agent/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Agent          *handlers.AgentHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.PatchTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/feedback", cfg.Tickets.SubmitFeedback)

	agent := app.Group("/agent", cfg.AuthMiddleware.Handle)
	agent.Post("/turn", cfg.Agent.Turn)
	agent.Get("/conversations/:id/turns", cfg.Agent.ListTurns)
}
