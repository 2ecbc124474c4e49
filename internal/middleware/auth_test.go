package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/meal-basket/internal/config"
	"github.com/foxxcyber/meal-basket/internal/models"
)

func sign(t *testing.T, secret string, role models.UserRole, expires time.Time) string {
	t.Helper()
	claims := &JWTClaims{
		UserID: 7,
		Email:  "admin@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthRequired(cfg), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": GetUserID(c), "email": GetUserEmail(c)})
	})
	app.Get("/admin", AuthRequired(cfg), AdminRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/open", AdminRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	app := newApp(cfg)
	valid := sign(t, "secret", models.UserRoleAdmin, time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, "other", models.UserRoleAdmin, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, "secret", models.UserRoleAdmin, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAdminRequired(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	app := newApp(cfg)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, "secret", models.UserRoleAdmin, time.Now().Add(time.Hour)))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, "secret", models.UserRoleUser, time.Now().Add(time.Hour)))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/open", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestParseToken(t *testing.T) {
	claims, err := ParseToken(sign(t, "secret", models.UserRoleAdmin, time.Now().Add(time.Hour)), "secret")
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, models.UserRoleAdmin, claims.Role)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(unsigned, "secret")
	assert.Error(t, err)
}
