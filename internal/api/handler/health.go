package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck probes a dependency and returns extra details to report.
type HealthCheck func(ctx context.Context) (map[string]string, error)

type HealthHandler struct {
	message string
	info    map[string]string
	check   HealthCheck
}

// NewHealthHandler reports message and info when check passes. A nil check
// always passes.
func NewHealthHandler(message string, info map[string]string, check HealthCheck) *HealthHandler {
	if check == nil {
		check = func(context.Context) (map[string]string, error) { return nil, nil }
	}
	return &HealthHandler{
		message: message,
		info:    info,
		check:   check,
	}
}

const healthTimeout = 5 * time.Second

// Health GET /health. Always answers 200; the status field carries the verdict.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
	defer cancel()

	details, err := h.check(ctx)
	if err != nil {
		return c.JSON(fiber.Map{
			"status":  "unhealthy",
			"message": err.Error(),
		})
	}

	body := fiber.Map{
		"status":  "healthy",
		"message": h.message,
	}
	for k, v := range h.info {
		body[k] = v
	}
	for k, v := range details {
		body[k] = v
	}
	return c.JSON(body)
}

// Ready GET /ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
	defer cancel()

	if _, err := h.check(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
	})
}
