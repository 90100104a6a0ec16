package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-eval-api/internal/config"
	"github.com/noah-isme/gema-eval-api/internal/handler"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler    *handler.SessionHandler
	EvaluationHandler *handler.EvaluationHandler
	ResultHandler     *handler.ResultHandler
	HealthChecks      map[string]handler.HealthCheckFunc
	AuthMiddleware    fiber.Handler
	TeacherGuard      fiber.Handler
	StudentGuard      fiber.Handler
	SubmitLimiter     fiber.Handler
	MetricsHandler    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.MetricsHandler != nil {
		app.Get("/metrics", deps.MetricsHandler)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	auth := deps.AuthMiddleware
	if auth == nil {
		auth = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterPublic(api.Group("/sessions"))
		deps.SessionHandler.Register(api.Group("/sessions/current", auth))
	}

	if deps.EvaluationHandler != nil {
		teacher := api.Group("/teacher", auth, guard(deps.TeacherGuard))
		deps.EvaluationHandler.Register(teacher, deps.SubmitLimiter)
	}

	if deps.ResultHandler != nil {
		student := api.Group("/student", auth, guard(deps.StudentGuard))
		deps.ResultHandler.Register(student)
	}
}

func guard(h fiber.Handler) fiber.Handler {
	if h == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return h
}

