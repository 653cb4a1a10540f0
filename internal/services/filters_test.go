package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tripplanner/backend/internal/forensics"
)

func ptr(s string) *string { return &s }

func filterRecords() []forensics.ChangeRecord {
	return []forensics.ChangeRecord{
		{ID: "a1", Source: forensics.SourceAdmin, CreatedAt: "2026-03-01T09:00:00.000Z", Action: forensics.ActionAdminOverrideCommit,
			TargetType: "trip", TargetID: ptr("trip-1"), ActorUserID: ptr("admin-1"), ActorEmail: ptr("Ops@Example.com")},
		{ID: "u1", Source: forensics.SourceUser, CreatedAt: "2026-03-01T10:00:00.000Z", Action: forensics.ActionTripUpdated,
			TargetType: "trip", TargetID: ptr("trip-2"), ActorUserID: ptr("user-1"), Metadata: map[string]any{"correlation_id": "Import-42"}},
		{ID: "u2", Source: forensics.SourceUser, CreatedAt: "2026-03-01T11:00:00.000Z", Action: forensics.ActionProfileUpdated,
			TargetType: "profile", TargetID: ptr("user-2")},
	}
}

func TestApplyExportFilters(t *testing.T) {
	at := func(s string) *time.Time {
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatal(err)
		}
		return &v
	}

	tests := []struct {
		name     string
		filters  ExportFilters
		expected []string
	}{
		{"no filters", ExportFilters{}, []string{"a1", "u1", "u2"}},
		{"date from inclusive", ExportFilters{DateFrom: at("2026-03-01T10:00:00Z")}, []string{"u1", "u2"}},
		{"date to inclusive", ExportFilters{DateTo: at("2026-03-01T10:00:00Z")}, []string{"a1", "u1"}},
		{"date in other zone", ExportFilters{DateFrom: at("2026-03-01T17:30:00+07:00")}, []string{"u2"}},
		{"sources", ExportFilters{Sources: []string{"admin"}}, []string{"a1"}},
		{"actions", ExportFilters{Actions: []string{forensics.ActionTripUpdated, forensics.ActionProfileUpdated}}, []string{"u1", "u2"}},
		{"target types", ExportFilters{TargetTypes: []string{"profile"}}, []string{"u2"}},
		{"actor ids skip anonymous", ExportFilters{ActorUserIDs: []string{"user-1", "admin-1"}}, []string{"a1", "u1"}},
		{"event ids", ExportFilters{EventIDs: []string{"u2", "missing"}}, []string{"u2"}},
		{"search email case-insensitive", ExportFilters{Search: "ops@example"}, []string{"a1"}},
		{"search target id", ExportFilters{Search: "TRIP-"}, []string{"a1", "u1"}},
		{"search correlation id", ExportFilters{Search: "import-42"}, []string{"u1"}},
		{"search synthesized correlation id", ExportFilters{Search: "user:u2"}, []string{"u2"}},
		{"combined", ExportFilters{Sources: []string{"user"}, Search: "trip"}, []string{"u1"}},
		{"nothing matches", ExportFilters{Actions: []string{"trip.deleted"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyExportFilters(filterRecords(), tt.filters)
			ids := []string{}
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestExportFiltersAsMap(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := ExportFilters{Search: "bkk", DateFrom: &from, Sources: []string{"user"}, Actions: []string{}}

	assert.Equal(t, map[string]any{
		"search":    "bkk",
		"date_from": "2026-03-01T00:00:00.000Z",
		"sources":   []string{"user"},
	}, f.AsMap())
	assert.Equal(t, map[string]any{}, ExportFilters{}.AsMap())
}

func TestExportFiltersValidate(t *testing.T) {
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Second)

	assert.NoError(t, ExportFilters{Sources: []string{"admin", "user"}}.Validate())
	assert.ErrorIs(t, ExportFilters{Sources: []string{"Admin"}}.Validate(), ErrInvalidSource)
	assert.ErrorIs(t, ExportFilters{DateFrom: &from, DateTo: &to}.Validate(), ErrInvalidRange)
	assert.NoError(t, ExportFilters{DateFrom: &from, DateTo: &from}.Validate())
}
