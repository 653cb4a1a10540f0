package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tripplanner/backend/internal/http/dto"
	"github.com/tripplanner/backend/internal/rbac"
	"go.uber.org/zap"
)

const CtxAdminRole = "admin_role"

type RoleResolver interface {
	Role(ctx context.Context, userID uuid.UUID) (string, error)
}

// AdminMiddleware admits admin and support staff. Must run after
// AuthMiddleware.
func AdminMiddleware(roles RoleResolver, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		role, err := roles.Role(c.UserContext(), userID)
		if err != nil {
			log.Error("failed to resolve admin role", zap.String("user_id", userID.String()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: "failed to resolve role", RequestID: GetRequestID(c),
			})
		}
		if role == "" {
			return forbidden(c, "admin access required")
		}
		c.Locals(CtxAdminRole, role)
		return c.Next()
	}
}

// RequirePermission rejects roles lacking permission. Must run after
// AdminMiddleware.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rbac.HasPermission(GetAdminRole(c), permission) {
			return forbidden(c, "missing permission "+permission)
		}
		return c.Next()
	}
}

func GetAdminRole(c *fiber.Ctx) string {
	role, _ := c.Locals(CtxAdminRole).(string)
	return role
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: msg, RequestID: GetRequestID(c)})
}
