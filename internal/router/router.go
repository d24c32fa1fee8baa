package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pitcharena/pitcharena-api/internal/config"
	"github.com/pitcharena/pitcharena-api/internal/handler"
	"github.com/pitcharena/pitcharena-api/internal/middleware"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	HealthHandler      *handler.HealthHandler
	CompetitionHandler *handler.CompetitionHandler
	SubmissionHandler  *handler.SubmissionHandler
	JudgingHandler     *handler.JudgingHandler
	AdminHandler       *handler.AdminHandler
	LeaderboardHandler *handler.LeaderboardHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	if deps.HealthHandler != nil {
		deps.HealthHandler.Register(api)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Public catalogue and leaderboards.
	if deps.CompetitionHandler != nil {
		competitions := api.Group("/competitions")
		deps.CompetitionHandler.Register(competitions)
		if deps.LeaderboardHandler != nil {
			deps.LeaderboardHandler.Register(competitions)
		}
	}

	// Founder endpoints.
	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware,
			middleware.RateLimit("submissions", 60, time.Minute))
		deps.SubmissionHandler.Register(submissions)
	}

	// Judge endpoints.
	if deps.JudgingHandler != nil {
		judging := api.Group("/judging", jwtMiddleware,
			middleware.RequireRole(models.RoleJudge, models.RoleAdmin))
		deps.JudgingHandler.Register(judging)
	}

	// Admin endpoints.
	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
	if deps.AdminHandler != nil {
		deps.AdminHandler.Register(admin)
	}
	if deps.CompetitionHandler != nil {
		deps.CompetitionHandler.RegisterAdmin(admin.Group("/competitions"))
	}
}
