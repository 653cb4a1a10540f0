package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ForensicsArchive is one stored replay bundle covering [WindowStart, WindowEnd).
type ForensicsArchive struct {
	ID               uuid.UUID       `json:"id"`
	WindowStart      time.Time       `json:"window_start"`
	WindowEnd        time.Time       `json:"window_end"`
	EventCount       int             `json:"event_count"`
	CorrelationCount int             `json:"correlation_count"`
	Bundle           json.RawMessage `json:"bundle,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
