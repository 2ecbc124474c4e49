package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/scenario"
)

// ListScenarios returns the scenario library, optionally filtered by meal type
func (h *Handler) ListScenarios(c *fiber.Ctx) error {
	var templates []models.ScenarioTemplate
	if mealType := c.Query("meal_type"); mealType != "" {
		templates = h.library.ByMealType(mealType)
	} else {
		templates = h.library.Templates()
	}
	if templates == nil {
		templates = []models.ScenarioTemplate{}
	}

	return SuccessWithMeta(c, templates, len(templates), len(templates), 0)
}

// GetScenario returns one scenario scaled to ?people (default 2)
func (h *Handler) GetScenario(c *fiber.Ctx) error {
	people := c.QueryInt("people", 2)
	if people < 1 || people > 50 {
		return Error(c, fiber.StatusBadRequest, "people must be between 1 and 50")
	}

	t, err := h.library.ByID(c.Params("id"))
	if err != nil {
		if errors.Is(err, scenario.ErrScenarioNotFound) {
			return Error(c, fiber.StatusNotFound, "scenario not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get scenario")
	}

	scaled := scenario.Scale(t, people)
	return Success(c, fiber.Map{
		"scenario": scaled,
		"summary":  scaled.Summary(),
	})
}
