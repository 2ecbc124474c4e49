package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/database"
	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/planner"
	"github.com/foxxcyber/meal-basket/internal/scenario"
)

// BuildBasket assembles, scores and repairs a basket for the posted constraints
func (h *Handler) BuildBasket(c *fiber.Ctx) error {
	var req models.BuildBasketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return Error(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.validate.Struct(req); err != nil {
		return Error(c, fiber.StatusBadRequest, validationMessage(err))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.cfg.RequestTimeout)
	defer cancel()

	result, err := h.planner.Plan(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrUnknownStrategy):
			return Error(c, fiber.StatusBadRequest, "unknown strategy")
		case errors.Is(err, scenario.ErrScenarioNotFound):
			return Error(c, fiber.StatusNotFound, "no scenario matches the constraints")
		case errors.Is(err, context.DeadlineExceeded):
			return Error(c, fiber.StatusGatewayTimeout, "basket build timed out")
		}
		h.logger.Error("basket build failed", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to build basket")
	}

	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success: true,
		Data:    result,
	})
}

// GetBasket returns an archived basket by id
func (h *Handler) GetBasket(c *fiber.Ctx) error {
	result, err := h.planner.Get(c.Context(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrBasketNotFound):
			return Error(c, fiber.StatusNotFound, "basket not found")
		case errors.Is(err, planner.ErrArchiveDisabled):
			return Error(c, fiber.StatusNotImplemented, "basket archive is disabled")
		}
		h.logger.Error("failed to load basket", zap.String("id", c.Params("id")), zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to get basket")
	}

	return Success(c, result)
}

// ScoreBasket scores an ad-hoc basket built from catalog product ids
func (h *Handler) ScoreBasket(c *fiber.Ctx) error {
	var req models.ScoreBasketRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return Error(c, fiber.StatusBadRequest, validationMessage(err))
	}

	products, err := h.store.GetProductsByIDs(c.Context(), req.ProductIDs)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get products")
	}

	report, err := h.planner.ScoreProducts(products)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	return Success(c, report)
}
