package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tripplanner/backend/internal/config"
	"github.com/tripplanner/backend/internal/rbac"
	"go.uber.org/zap"
)

type RoleStore interface {
	AdminRole(ctx context.Context, id uuid.UUID) (string, error)
}

// AdminDirectory resolves console roles. The ADMIN_USER_IDS and
// SUPPORT_USER_IDS lists win over the role stored on the profile.
type AdminDirectory struct {
	cfg      *config.Config
	profiles RoleStore
	log      *zap.Logger
}

func NewAdminDirectory(cfg *config.Config, profiles RoleStore, log *zap.Logger) *AdminDirectory {
	return &AdminDirectory{cfg: cfg, profiles: profiles, log: log}
}

// Role returns the user's console role, or "" when the user is not staff.
func (d *AdminDirectory) Role(ctx context.Context, userID uuid.UUID) (string, error) {
	for _, id := range d.cfg.AdminUserIDs {
		if id == userID {
			return rbac.RoleAdmin, nil
		}
	}
	for _, id := range d.cfg.SupportUserIDs {
		if id == userID {
			return rbac.RoleSupport, nil
		}
	}
	if d.profiles == nil {
		return "", nil
	}

	role, err := d.profiles.AdminRole(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load admin role: %w", err)
	}
	if !rbac.IsRole(role) {
		if role != "" {
			d.log.Warn("ignoring unknown admin role", zap.String("user_id", userID.String()), zap.String("role", role))
		}
		return "", nil
	}
	return role, nil
}
