package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/tripplanner/backend/internal/services"
)

const rfc3339 = "2006-01-02T15:04:05Z07:00"

// ExportRequest is the body of POST /admin/audit/export. Dates are RFC3339;
// both bounds are inclusive.
type ExportRequest struct {
	Search       string   `json:"search,omitempty" validate:"max=200"`
	DateFrom     string   `json:"date_from,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DateTo       string   `json:"date_to,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Actions      []string `json:"actions,omitempty" validate:"max=50,dive,required,max=100"`
	TargetTypes  []string `json:"target_types,omitempty" validate:"max=50,dive,required,max=100"`
	ActorUserIDs []string `json:"actor_user_ids,omitempty" validate:"max=200,dive,required,max=100"`
	EventIDs     []string `json:"event_ids,omitempty" validate:"max=1000,dive,required,max=100"`
	Sources      []string `json:"sources,omitempty" validate:"max=2,dive,audit_source"`
}

func (r ExportRequest) Filters() (services.ExportFilters, error) {
	from, err := parseOptionalTime("date_from", r.DateFrom)
	if err != nil {
		return services.ExportFilters{}, err
	}
	to, err := parseOptionalTime("date_to", r.DateTo)
	if err != nil {
		return services.ExportFilters{}, err
	}
	return services.ExportFilters{
		Search:       strings.TrimSpace(r.Search),
		DateFrom:     from,
		DateTo:       to,
		Actions:      r.Actions,
		TargetTypes:  r.TargetTypes,
		ActorUserIDs: r.ActorUserIDs,
		EventIDs:     r.EventIDs,
		Sources:      r.Sources,
	}, nil
}

// TimelineRequest is the query string of GET /admin/audit/timeline.
// Sources is comma-separated.
type TimelineRequest struct {
	Since   string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Until   string `query:"until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit   int    `query:"limit" validate:"omitempty,min=1,max=5000"`
	Sources string `query:"sources" validate:"max=20"`
}

func (r TimelineRequest) Query() (services.TimelineQuery, error) {
	since, err := parseOptionalTime("since", r.Since)
	if err != nil {
		return services.TimelineQuery{}, err
	}
	until, err := parseOptionalTime("until", r.Until)
	if err != nil {
		return services.TimelineQuery{}, err
	}
	var sources []string
	for _, s := range strings.Split(r.Sources, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	return services.TimelineQuery{Since: since, Until: until, Limit: r.Limit, Sources: sources}, nil
}

// ArchiveRequest asks for an on-demand archive of [window_start, window_end).
type ArchiveRequest struct {
	WindowStart string `json:"window_start" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	WindowEnd   string `json:"window_end" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

func (r ArchiveRequest) Window() (time.Time, time.Time, error) {
	start, err := time.Parse(rfc3339, r.WindowStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window_start: %w", err)
	}
	end, err := time.Parse(rfc3339, r.WindowEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window_end: %w", err)
	}
	return start, end, nil
}

func parseOptionalTime(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(rfc3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &t, nil
}
