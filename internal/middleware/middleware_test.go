package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripplanner/backend/internal/auth"
	"github.com/tripplanner/backend/internal/config"
	"github.com/tripplanner/backend/internal/http/dto"
	"github.com/tripplanner/backend/internal/rbac"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type fixedRoles map[uuid.UUID]string

func (f fixedRoles) Role(_ context.Context, id uuid.UUID) (string, error) {
	return f[id], nil
}

type failingRoles struct{}

func (failingRoles) Role(context.Context, uuid.UUID) (string, error) {
	return "", errors.New("db down")
}

func newApp(roles RoleResolver) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret}
	log := zap.NewNop()

	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Use(LoggerMiddleware(log))
	app.Get("/whoami", AuthMiddleware(cfg, log), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": GetUserID(c).String(), "email": GetUserEmail(c)})
	})
	admin := app.Group("/admin", AuthMiddleware(cfg, log), AdminMiddleware(roles, log))
	admin.Get("/read", RequirePermission(rbac.PermAuditRead), func(c *fiber.Ctx) error {
		return c.SendString(GetAdminRole(c))
	})
	admin.Post("/archive", RequirePermission(rbac.PermAuditArchive), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.GenerateJWT(testSecret, userID, "ops@example.com", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	otherSecret, err := auth.GenerateJWT("other", userID, "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"missing header", "", fiber.StatusUnauthorized, "missing authorization header"},
		{"no bearer prefix", "Token abc", fiber.StatusUnauthorized, "invalid authorization format"},
		{"wrong secret", "Bearer " + otherSecret, fiber.StatusUnauthorized, "invalid or expired token"},
		{"valid", bearer(t, userID), fiber.StatusOK, ""},
	}

	app := newApp(fixedRoles{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			req.Header.Set("X-Request-ID", "req-1")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "req-1", resp.Header.Get("X-Request-ID"))

			if tt.wantError != "" {
				var body dto.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.wantError, body.Error)
				assert.Equal(t, "req-1", body.RequestID)
				return
			}
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, userID.String(), body["user_id"])
			assert.Equal(t, "ops@example.com", body["email"])
		})
	}
}

func TestAdminGates(t *testing.T) {
	admin, support, customer := uuid.New(), uuid.New(), uuid.New()
	app := newApp(fixedRoles{admin: rbac.RoleAdmin, support: rbac.RoleSupport})

	tests := []struct {
		name       string
		method     string
		path       string
		user       uuid.UUID
		wantStatus int
	}{
		{"admin reads", "GET", "/admin/read", admin, fiber.StatusOK},
		{"support reads", "GET", "/admin/read", support, fiber.StatusOK},
		{"customer rejected", "GET", "/admin/read", customer, fiber.StatusForbidden},
		{"admin archives", "POST", "/admin/archive", admin, fiber.StatusNoContent},
		{"support cannot archive", "POST", "/admin/archive", support, fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", bearer(t, tt.user))
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestAdminMiddlewareResolverFailure(t *testing.T) {
	app := newApp(failingRoles{})
	req := httptest.NewRequest("GET", "/admin/read", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestRequestIDGenerated(t *testing.T) {
	app := newApp(fixedRoles{})
	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)

	_, err = uuid.Parse(resp.Header.Get("X-Request-ID"))
	assert.NoError(t, err)
}
