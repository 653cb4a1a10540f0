package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tripplanner/backend/internal/forensics"
)

// AdminAuditLog is a row of admin_audit_logs: actions taken from the admin
// console, including undo, export and archive entries.
type AdminAuditLog struct {
	ID          uuid.UUID      `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	AdminUserID *uuid.UUID     `json:"admin_user_id,omitempty"`
	AdminEmail  *string        `json:"admin_email,omitempty"`
	Action      string         `json:"action"`
	TargetType  string         `json:"target_type"`
	TargetID    *string        `json:"target_id,omitempty"`
	BeforeData  map[string]any `json:"before_data,omitempty"`
	AfterData   map[string]any `json:"after_data,omitempty"`
	Metadata    map[string]any `json:"metadata"`
}

// UserChangeLog is a row of user_change_logs joined with the author's profile
// email.
type UserChangeLog struct {
	ID         uuid.UUID      `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	UserEmail  *string        `json:"user_email,omitempty"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   *string        `json:"target_id,omitempty"`
	BeforeData map[string]any `json:"before_data,omitempty"`
	AfterData  map[string]any `json:"after_data,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}

func (l AdminAuditLog) ChangeRecord() forensics.ChangeRecord {
	return forensics.ChangeRecord{
		ID:          l.ID.String(),
		Source:      forensics.SourceAdmin,
		CreatedAt:   FormatTimestamp(l.CreatedAt),
		Action:      l.Action,
		TargetType:  l.TargetType,
		TargetID:    l.TargetID,
		ActorUserID: uuidString(l.AdminUserID),
		ActorEmail:  l.AdminEmail,
		BeforeData:  l.BeforeData,
		AfterData:   l.AfterData,
		Metadata:    l.Metadata,
	}
}

func (l UserChangeLog) ChangeRecord() forensics.ChangeRecord {
	return forensics.ChangeRecord{
		ID:          l.ID.String(),
		Source:      forensics.SourceUser,
		CreatedAt:   FormatTimestamp(l.CreatedAt),
		Action:      l.Action,
		TargetType:  l.TargetType,
		TargetID:    l.TargetID,
		ActorUserID: uuidString(l.UserID),
		ActorEmail:  l.UserEmail,
		BeforeData:  l.BeforeData,
		AfterData:   l.AfterData,
		Metadata:    l.Metadata,
	}
}

// FormatTimestamp renders t in the millisecond UTC form the forensics
// package orders by.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(forensics.TimestampLayout)
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
