package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/tripplanner/backend/internal/forensics"
	"github.com/tripplanner/backend/internal/models"
)

// ExportFilters narrows the merged audit trail before it is bundled. Empty
// lists and nil dates do not constrain. Both date bounds are inclusive.
type ExportFilters struct {
	Search       string
	DateFrom     *time.Time
	DateTo       *time.Time
	Actions      []string
	TargetTypes  []string
	ActorUserIDs []string
	EventIDs     []string
	Sources      []string

	// Raw is the filter object as the caller sent it. The bundle echoes it
	// unchanged; nil falls back to AsMap.
	Raw map[string]any
}

func (f ExportFilters) Validate() error {
	for _, s := range f.Sources {
		if !forensics.Source(s).Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidSource, s)
		}
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return fmt.Errorf("%w: date_to is before date_from", ErrInvalidRange)
	}
	return nil
}

// AsMap renders the filters for the bundle's filters field. Only set
// filters appear.
func (f ExportFilters) AsMap() map[string]any {
	out := map[string]any{}
	if f.Search != "" {
		out["search"] = f.Search
	}
	if f.DateFrom != nil {
		out["date_from"] = models.FormatTimestamp(*f.DateFrom)
	}
	if f.DateTo != nil {
		out["date_to"] = models.FormatTimestamp(*f.DateTo)
	}
	lists := []struct {
		key    string
		values []string
	}{
		{"actions", f.Actions},
		{"target_types", f.TargetTypes},
		{"actor_user_ids", f.ActorUserIDs},
		{"event_ids", f.EventIDs},
		{"sources", f.Sources},
	}
	for _, l := range lists {
		if len(l.values) > 0 {
			out[l.key] = append([]string(nil), l.values...)
		}
	}
	return out
}

// ApplyExportFilters keeps the records matching every set filter, in input
// order.
func ApplyExportFilters(records []forensics.ChangeRecord, f ExportFilters) []forensics.ChangeRecord {
	var from, to string
	if f.DateFrom != nil {
		from = models.FormatTimestamp(*f.DateFrom)
	}
	if f.DateTo != nil {
		to = models.FormatTimestamp(*f.DateTo)
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]forensics.ChangeRecord, 0, len(records))
	for _, r := range records {
		switch {
		case from != "" && r.CreatedAt < from:
		case to != "" && r.CreatedAt > to:
		case !allowed(f.Sources, string(r.Source)):
		case !allowed(f.Actions, r.Action):
		case !allowed(f.TargetTypes, r.TargetType):
		case !allowed(f.EventIDs, r.ID):
		case len(f.ActorUserIDs) > 0 && (r.ActorUserID == nil || !allowed(f.ActorUserIDs, *r.ActorUserID)):
		case needle != "" && !matchesSearch(r, needle):
		default:
			out = append(out, r)
		}
	}
	return out
}

func allowed(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func matchesSearch(r forensics.ChangeRecord, needle string) bool {
	fields := []string{r.ID, r.Action, r.TargetType, forensics.CorrelationIDFor(r)}
	for _, p := range []*string{r.TargetID, r.ActorUserID, r.ActorEmail} {
		if p != nil {
			fields = append(fields, *p)
		}
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
