package handlers

import (
	"ticket-triage/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func Health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthResponse{Status: "ok"})
}
