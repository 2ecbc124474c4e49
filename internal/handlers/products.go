package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/database"
	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/middleware"
	"github.com/foxxcyber/meal-basket/internal/models"
)

// ListProducts returns a paginated list of catalog products
func (h *Handler) ListProducts(c *fiber.Ctx) error {
	params := &models.ProductListParams{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
		Search: c.Query("search"),
		Tag:    c.Query("tag"),
		Role:   c.Query("role"),
	}

	// Validate limits
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	products, total, err := h.store.ListProducts(c.Context(), params)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list products")
	}

	return SuccessWithMeta(c, products, total, params.Limit, params.Offset)
}

// GetProduct returns a single product by ID
func (h *Handler) GetProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	product, err := h.store.GetProductByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get product")
	}

	return Success(c, product)
}

// UpsertProduct creates or updates a product (admin only). The semantic
// vector is recomputed from the name and category.
func (h *Handler) UpsertProduct(c *fiber.Ctx) error {
	var req models.UpsertProductRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return Error(c, fiber.StatusBadRequest, validationMessage(err))
	}

	unit := models.ParseUnit(req.Unit)
	if unit != models.UnitKilogram && unit != models.UnitLiter && unit != models.UnitPiece {
		return Error(c, fiber.StatusBadRequest, "unit must be one of: kg l piece")
	}

	product := &models.Product{
		Name:         strings.TrimSpace(req.Name),
		Category:     strings.TrimSpace(req.Category),
		Brand:        strings.TrimSpace(req.Brand),
		PricePerUnit: models.RoundMoney(req.PricePerUnit),
		Unit:         unit,
		PackageSize:  req.PackageSize,
		Tags:         req.Tags,
		MealRoles:    req.MealRoles,
	}
	if req.ID != nil {
		product.ID = *req.ID
	}
	if len(product.MealRoles) == 0 {
		product.MealRoles = []string{models.RoleOther}
	}

	vector, err := embedding.EmbedOne(c.Context(), h.embedder, product.EmbeddingText())
	if err != nil {
		// The product stays usable for filling; repair skips it until re-embedded.
		h.logger.Warn("failed to embed product", zap.String("name", product.Name), zap.Error(err))
	} else {
		product.Vector = vector
	}

	saved, err := h.store.UpsertProduct(c.Context(), product)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		h.logger.Error("failed to save product", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to save product")
	}

	h.logger.Info("product saved",
		zap.Int("id", saved.ID),
		zap.String("name", saved.Name),
		zap.Int("admin_id", middleware.GetUserID(c)))

	status := fiber.StatusOK
	if req.ID == nil {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    saved,
	})
}

// DeleteProduct removes a product (admin only)
func (h *Handler) DeleteProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	if err := h.store.DeleteProduct(c.Context(), id); err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to delete product")
	}
	h.logger.Info("product deleted", zap.Int("id", id), zap.Int("admin_id", middleware.GetUserID(c)))

	return Success(c, fiber.Map{
		"message": "product deleted",
	})
}
