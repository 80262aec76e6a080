package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"catprep/backend/config"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Use(LoggingMiddleware(utils.NopLogger()))
	app.Get("/me", AuthMiddleware(cfg), func(c *fiber.Ctx) error {
		identity, _ := IdentityFrom(c)
		return c.SendString(identity.UserID.String())
	})
	app.Get("/admin", AuthMiddleware(cfg), AdminMiddleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func token(t *testing.T, cfg *config.Config, role models.Role) (string, uuid.UUID) {
	t.Helper()
	user := &models.User{ID: uuid.New(), Role: role}
	tok, err := utils.GenerateJWTToken(user, cfg)
	require.NoError(t, err)
	return tok, user.ID
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour}
	app := newTestApp(cfg)
	tok, id := token(t, cfg, models.RoleStudent)

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("bare token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", tok)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, id.String(), string(body))
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := token(t, &config.Config{JWTSecret: "other", JWTTTL: time.Hour}, models.RoleStudent)
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+other)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, _ := token(t, &config.Config{JWTSecret: "testsecret", JWTTTL: -time.Minute}, models.RoleStudent)
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAdminMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour}
	app := newTestApp(cfg)

	student, _ := token(t, cfg, models.RoleStudent)
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+student)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	admin, _ := token(t, cfg, models.RoleAdmin)
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
