package handlers

import (
	"context"
	"time"

	"medtracker/internal/database"
	"medtracker/internal/jobs"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports process and dependency health
type HealthHandler struct {
	mongodb   *database.MongoDB
	scheduler *jobs.Scheduler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(mongodb *database.MongoDB, scheduler *jobs.Scheduler) *HealthHandler {
	return &HealthHandler{
		mongodb:   mongodb,
		scheduler: scheduler,
	}
}

// Handle handles GET /health
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.mongodb.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"mongo":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
		"jobs":   h.scheduler.GetStatus(),
	})
}
