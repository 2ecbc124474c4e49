package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foxxcyber/meal-basket/internal/middleware"
)

// RegisterRoutes mounts the health check and the /api routes on app
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Post("/refresh", middleware.AuthRequired(h.cfg), h.RefreshToken)

	// Basket routes (public)
	baskets := api.Group("/baskets")
	baskets.Post("/", h.BuildBasket)
	baskets.Post("/score", h.ScoreBasket)
	baskets.Get("/:id", h.GetBasket)

	// Scenario routes (public)
	scenarios := api.Group("/scenarios")
	scenarios.Get("/", h.ListScenarios)
	scenarios.Get("/:id", h.GetScenario)

	// Product routes (public)
	products := api.Group("/products")
	products.Get("/", h.ListProducts)
	products.Get("/:id", h.GetProduct)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthRequired(h.cfg), middleware.AdminRequired())
	admin.Post("/products", h.UpsertProduct)
	admin.Delete("/products/:id", h.DeleteProduct)
}
