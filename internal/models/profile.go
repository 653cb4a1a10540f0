package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors the Supabase auth user. AdminRole is set for console
// operators only.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Email       *string   `json:"email,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	AdminRole   *string   `json:"admin_role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
