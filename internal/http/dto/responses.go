package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// MeResponse describes the signed-in console user.
type MeResponse struct {
	Profile     any      `json:"profile"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions"`
}

// ArchiveSummary lists an archive without its bundle.
type ArchiveSummary struct {
	ID               string `json:"id"`
	WindowStart      string `json:"window_start"`
	WindowEnd        string `json:"window_end"`
	EventCount       int    `json:"event_count"`
	CorrelationCount int    `json:"correlation_count"`
	CreatedAt        string `json:"created_at"`
}
