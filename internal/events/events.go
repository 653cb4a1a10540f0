package events

import "context"

// StreamAdminAudit carries admin console activity to live dashboards.
const StreamAdminAudit = "events:admin_audit"

// Event types
const (
	EventForensicsExportCreated  = "forensics_export_created"
	EventForensicsArchiveCreated = "forensics_archive_created"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
