package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/foxxcyber/meal-basket/internal/database"
	"github.com/foxxcyber/meal-basket/internal/middleware"
	"github.com/foxxcyber/meal-basket/internal/models"
)

// Login handles admin authentication
func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if err := h.validate.Struct(req); err != nil {
		return Error(c, fiber.StatusBadRequest, validationMessage(err))
	}

	user, err := h.store.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return Error(c, fiber.StatusUnauthorized, "invalid credentials")
		}
		h.logger.Error("login lookup failed", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "authentication failed")
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if err := h.store.UpdateUserLastLogin(c.Context(), user.ID); err != nil {
		h.logger.Warn("failed to record login", zap.Int("user_id", user.ID), zap.Error(err))
	}

	return h.issueToken(c, user)
}

// RefreshToken issues a new token for the authenticated user
func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	email := middleware.GetUserEmail(c)
	if email == "" {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.store.GetUserByEmail(c.Context(), email)
	if err != nil {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	return h.issueToken(c, user)
}

func (h *Handler) issueToken(c *fiber.Ctx, user *models.User) error {
	token, expiresAt, err := h.generateToken(user)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(models.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// generateToken creates a new JWT token for a user
func (h *Handler) generateToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(h.cfg.JWTExpiry)

	claims := &middleware.JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
