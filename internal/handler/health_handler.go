package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pitcharena/pitcharena-api/internal/utils"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	appName string
	appEnv  string
}

// NewHealthHandler constructs the health handler.
func NewHealthHandler(appName, appEnv string) *HealthHandler {
	return &HealthHandler{appName: appName, appEnv: appEnv}
}

// Register attaches the health endpoint.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "ok", fiber.Map{
		"app":    h.appName,
		"env":    h.appEnv,
		"status": "healthy",
	})
}
