package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Health reports whether the catalog store is reachable
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  "database unreachable",
		})
	}

	return c.JSON(fiber.Map{
		"status":     "ok",
		"scenarios":  h.library.Len(),
		"strategies": h.planner.Strategies(),
	})
}
