package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tripplanner/backend/internal/http/dto"
	"github.com/tripplanner/backend/internal/middleware"
	"github.com/tripplanner/backend/internal/models"
	"github.com/tripplanner/backend/internal/rbac"
	"go.uber.org/zap"
)

type ProfileStore interface {
	UpsertFromToken(ctx context.Context, id uuid.UUID, email *string) (*models.Profile, error)
	UpdateLastSeen(ctx context.Context, id uuid.UUID) error
}

type ProfileHandler struct {
	profiles ProfileStore
	roles    middleware.RoleResolver
	log      *zap.Logger
}

func NewProfileHandler(profiles ProfileStore, roles middleware.RoleResolver, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, roles: roles, log: log}
}

// GetMe returns the caller's profile with their console role, creating the
// profile on first sight of the token subject.
func (h *ProfileHandler) GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	var email *string
	if e := middleware.GetUserEmail(c); e != "" {
		email = &e
	}

	profile, err := h.profiles.UpsertFromToken(c.UserContext(), userID, email)
	if err != nil {
		return respondError(c, h.log, err)
	}
	role, err := h.roles.Role(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	perms := rbac.RolePermissions[role]
	if perms == nil {
		perms = []string{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.MeResponse{Profile: profile, Role: role, Permissions: perms}})
}

func (h *ProfileHandler) Ping(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if err := h.profiles.UpdateLastSeen(c.UserContext(), userID); err != nil {
		h.log.Error("failed to update last_seen_at", zap.Error(err))
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
