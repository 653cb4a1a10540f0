// Package forensics reconciles the admin and user audit trails: it extracts
// field-level diffs from change records, inverts undo operations and builds
// deterministic replay bundles for offline review.
//
// Everything in this package is pure. Inputs are never mutated and every
// function is total over its input domain: malformed metadata degrades to
// fewer diff entries, never to an error.
package forensics

// Source identifies which audit trail produced a record.
type Source string

const (
	SourceAdmin Source = "admin"
	SourceUser  Source = "user"
)

func (s Source) Valid() bool {
	return s == SourceAdmin || s == SourceUser
}

// Well-known action codes.
const (
	ActionTripCreated         = "trip.created"
	ActionTripUpdated         = "trip.updated"
	ActionTripArchived        = "trip.archived"
	ActionTripDeleted         = "trip.deleted"
	ActionTripShareCreated    = "trip.share_created"
	ActionProfileUpdated      = "profile.updated"
	ActionAdminOverrideCommit = "admin.trip.override_commit"
	ActionAdminUndo           = "admin.audit.undo"
	ActionAdminExport         = "admin.audit.export"
	ActionAdminArchive        = "admin.audit.archive"
)

// ChangeRecord is a single row of either audit trail. CreatedAt is an
// ISO-8601 UTC timestamp; all ordering in this package compares it lexically.
type ChangeRecord struct {
	ID          string         `json:"id"`
	Source      Source         `json:"source"`
	CreatedAt   string         `json:"created_at"`
	Action      string         `json:"action"`
	TargetType  string         `json:"target_type"`
	TargetID    *string        `json:"target_id"`
	ActorUserID *string        `json:"actor_user_id"`
	ActorEmail  *string        `json:"actor_email"`
	BeforeData  map[string]any `json:"before_data"`
	AfterData   map[string]any `json:"after_data"`
	Metadata    map[string]any `json:"metadata"`
}

// DiffEntry is one field-level change.
type DiffEntry struct {
	Key         string `json:"key"`
	BeforeValue any    `json:"before_value"`
	AfterValue  any    `json:"after_value"`
}

// TimelineEntry tags a record with the trail it was read from. Undo
// resolution trusts Kind, not Record.Source.
type TimelineEntry struct {
	Kind   Source
	Record ChangeRecord
}
