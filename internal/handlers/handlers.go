package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/config"
	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/planner"
	"github.com/foxxcyber/meal-basket/internal/scenario"
)

// ProductStore is the product repository behind the catalog endpoints.
// Both database.DB and storage.SQLiteStore implement it.
type ProductStore interface {
	ListProducts(ctx context.Context, params *models.ProductListParams) ([]*models.Product, int, error)
	GetProductByID(ctx context.Context, id int) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int) ([]models.Product, error)
	UpsertProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int) error
}

// UserStore looks up admin accounts
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserLastLogin(ctx context.Context, id int) error
}

// Store is everything the handlers read and write
type Store interface {
	ProductStore
	UserStore
	Ping(ctx context.Context) error
}

// Handler holds all handler dependencies
type Handler struct {
	store    Store
	cfg      *config.Config
	planner  *planner.Planner
	library  *scenario.Library
	embedder embedding.Embedder
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates a new Handler instance
func New(store Store, cfg *config.Config, p *planner.Planner, library *scenario.Library, embedder embedding.Embedder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:    store,
		cfg:      cfg,
		planner:  p,
		library:  library,
		embedder: embedder,
		validate: validator.New(),
		logger:   logger.Named("handlers"),
	}
}

// ErrorHandler is a custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Default to 500
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

// APIResponse is a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta returns a successful response with pagination
func SuccessWithMeta(c *fiber.Ctx, data interface{}, total, limit, offset int) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	})
}

// Error returns an error response
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}

// validationMessage turns the first failed rule into a readable message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
