package forensics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func event(id string, source Source, createdAt, action string, metadata map[string]any) ChangeRecord {
	return ChangeRecord{
		ID:         id,
		Source:     source,
		CreatedAt:  createdAt,
		Action:     action,
		TargetType: "trip",
		TargetID:   strPtr("trip-1"),
		Metadata:   metadata,
	}
}

func TestBuildReplayBundle_OrdersAndNumbersEvents(t *testing.T) {
	records := []ChangeRecord{
		event("e2", SourceUser, "2026-05-01T10:00:02.000Z", ActionTripUpdated, nil),
		event("e0", SourceAdmin, "2026-05-01T10:00:00.000Z", ActionAdminOverrideCommit, nil),
		event("e1", SourceUser, "2026-05-01T10:00:01.000Z", ActionTripArchived, nil),
	}

	bundle := BuildReplayBundle(records, BundleOptions{GeneratedAt: "2026-05-02T00:00:00.000Z"})

	require.Len(t, bundle.Events, 3)
	for i, want := range []string{"e0", "e1", "e2"} {
		assert.Equal(t, want, bundle.Events[i].ID)
		assert.Equal(t, i+1, bundle.Events[i].Sequence)
	}
	assert.Equal(t, "e2", records[0].ID, "input order untouched")
}

func TestBuildReplayBundle_StableForEqualTimestamps(t *testing.T) {
	ts := "2026-05-01T10:00:00.000Z"
	records := []ChangeRecord{
		event("z", SourceUser, ts, ActionTripUpdated, nil),
		event("a", SourceUser, ts, ActionTripUpdated, nil),
		event("m", SourceAdmin, ts, ActionTripUpdated, nil),
	}
	bundle := BuildReplayBundle(records, BundleOptions{})

	var ids []string
	for _, e := range bundle.Events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
}

func TestBuildReplayBundle_CorrelationGrouping(t *testing.T) {
	records := []ChangeRecord{
		event("e3", SourceAdmin, "2026-05-01T10:00:03.000Z", ActionTripUpdated, map[string]any{"correlation_id": "corr-1"}),
		event("e1", SourceUser, "2026-05-01T10:00:01.000Z", ActionTripUpdated, map[string]any{"correlation_id": "corr-1"}),
		event("e2", SourceUser, "2026-05-01T10:00:02.000Z", ActionTripArchived, map[string]any{"event_id": "evt-9"}),
		event("e4", SourceUser, "2026-05-01T10:00:04.000Z", ActionTripUpdated, map[string]any{"correlation_id": "corr-1"}),
		event("e0", SourceAdmin, "2026-05-01T10:00:00.000Z", ActionTripCreated, nil),
	}

	bundle := BuildReplayBundle(records, BundleOptions{})

	require.Equal(t, []CorrelationGroup{
		{
			CorrelationID: "admin:e0",
			EventIDs:      []string{"e0"},
			Actions:       []string{ActionTripCreated},
			FirstSeenAt:   "2026-05-01T10:00:00.000Z",
			LastSeenAt:    "2026-05-01T10:00:00.000Z",
		},
		{
			CorrelationID: "corr-1",
			EventIDs:      []string{"e1", "e3", "e4"},
			Actions:       []string{ActionTripUpdated},
			FirstSeenAt:   "2026-05-01T10:00:01.000Z",
			LastSeenAt:    "2026-05-01T10:00:04.000Z",
		},
		{
			CorrelationID: "evt-9",
			EventIDs:      []string{"e2"},
			Actions:       []string{ActionTripArchived},
			FirstSeenAt:   "2026-05-01T10:00:02.000Z",
			LastSeenAt:    "2026-05-01T10:00:02.000Z",
		},
	}, bundle.Correlations)
	assert.Equal(t, BundleTotals{EventCount: 5, CorrelationCount: 3}, bundle.Totals)
}

func TestBuildReplayBundle_DeduplicatesActionsInFirstSeenOrder(t *testing.T) {
	md := map[string]any{"correlation_id": "corr-1"}
	records := []ChangeRecord{
		event("e1", SourceUser, "2026-05-01T10:00:01.000Z", ActionTripUpdated, md),
		event("e2", SourceAdmin, "2026-05-01T10:00:02.000Z", ActionAdminUndo, md),
		event("e3", SourceUser, "2026-05-01T10:00:03.000Z", ActionTripUpdated, md),
	}
	bundle := BuildReplayBundle(records, BundleOptions{})

	require.Len(t, bundle.Correlations, 1)
	assert.Equal(t, []string{"e1", "e2", "e3"}, bundle.Correlations[0].EventIDs)
	assert.Equal(t, []string{ActionTripUpdated, ActionAdminUndo}, bundle.Correlations[0].Actions)
}

func TestBuildReplayBundle_Redaction(t *testing.T) {
	masked := event("e1", SourceAdmin, "2026-05-01T10:00:01.000Z", ActionAdminOverrideCommit,
		map[string]any{"redaction_policy": "mask-errors", "error_message": "pg: deadlock", "attempt": 2})
	masked.BeforeData = map[string]any{"error_message": "old failure", "status": "active"}
	masked.AfterData = map[string]any{"status": "archived"}

	plain := event("e2", SourceUser, "2026-05-01T10:00:02.000Z", ActionTripUpdated,
		map[string]any{"error_message": "visible"})
	plain.AfterData = map[string]any{"error_message": "visible too"}

	explicitNone := event("e3", SourceUser, "2026-05-01T10:00:03.000Z", ActionTripUpdated,
		map[string]any{"redaction_policy": "none", "error_message": "still visible"})

	bundle := BuildReplayBundle([]ChangeRecord{masked, plain, explicitNone}, BundleOptions{})
	require.Len(t, bundle.Events, 3)

	e := bundle.Events[0]
	assert.Equal(t, "mask-errors", e.RedactionPolicy)
	assert.Equal(t, map[string]any{"redaction_policy": "mask-errors", "error_message": RedactedValue, "attempt": 2}, e.Metadata)
	assert.Equal(t, map[string]any{"error_message": RedactedValue, "status": "active"}, e.BeforeData)
	assert.Equal(t, map[string]any{"status": "archived"}, e.AfterData)

	assert.Equal(t, RedactionNone, bundle.Events[1].RedactionPolicy)
	assert.Equal(t, "visible", bundle.Events[1].Metadata["error_message"])
	assert.Equal(t, "visible too", bundle.Events[1].AfterData["error_message"])
	assert.Equal(t, "still visible", bundle.Events[2].Metadata["error_message"])

	assert.Equal(t, "pg: deadlock", masked.Metadata["error_message"], "input record untouched")
	assert.Equal(t, "old failure", masked.BeforeData["error_message"], "input record untouched")
}

func TestRedactEventIsIdempotent(t *testing.T) {
	e := ForensicsEvent{
		RedactionPolicy: "mask-errors",
		Metadata:        map[string]any{"error_message": "x"},
	}
	once := RedactEvent(e)
	twice := RedactEvent(once)
	assert.Equal(t, once, twice)
}

func TestBuildReplayBundle_Empty(t *testing.T) {
	bundle := BuildReplayBundle(nil, BundleOptions{GeneratedAt: "2026-05-02T00:00:00.000Z"})

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schema": "admin_forensics_replay_v1",
		"generated_at": "2026-05-02T00:00:00.000Z",
		"filters": {},
		"totals": {"event_count": 0, "correlation_count": 0},
		"events": [],
		"correlations": []
	}`, string(raw))
}

func TestBuildReplayBundle_DefaultsAndPassthrough(t *testing.T) {
	filters := map[string]any{"search": "tokyo", "actions": []any{"trip.updated"}}
	bundle := BuildReplayBundle([]ChangeRecord{{ID: "e1", Source: SourceUser}}, BundleOptions{Filters: filters})

	assert.Equal(t, filters, bundle.Filters)
	_, err := time.Parse(TimestampLayout, bundle.GeneratedAt)
	assert.NoError(t, err)

	require.Len(t, bundle.Events, 1)
	assert.Equal(t, "user:e1", bundle.Events[0].CorrelationID)
	assert.Equal(t, map[string]any{}, bundle.Events[0].Metadata)
	assert.Nil(t, bundle.Events[0].BeforeData)
}

func TestBundleJSONMatchesSchema(t *testing.T) {
	records := []ChangeRecord{
		event("e1", SourceUser, "2026-05-01T10:00:01.000Z", ActionTripUpdated, map[string]any{"correlation_id": "c"}),
		{ID: "e2", Source: SourceAdmin, CreatedAt: "2026-05-01T10:00:02.000Z", Action: ActionAdminUndo,
			BeforeData: map[string]any{"a": 1}, AfterData: map[string]any{"a": 2}},
	}
	raw, err := json.Marshal(BuildReplayBundle(records, BundleOptions{}))
	require.NoError(t, err)
	require.NoError(t, ValidateBundleJSON(raw))

	empty, err := json.Marshal(BuildReplayBundle(nil, BundleOptions{}))
	require.NoError(t, err)
	require.NoError(t, ValidateBundleJSON(empty))
}

func TestValidateBundleJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"schema":`},
		{"wrong schema tag", `{"schema":"v0","generated_at":"x","filters":{},"totals":{"event_count":0,"correlation_count":0},"events":[],"correlations":[]}`},
		{"missing correlations", `{"schema":"admin_forensics_replay_v1","generated_at":"x","filters":{},"totals":{"event_count":0,"correlation_count":0},"events":[]}`},
		{"extra top-level key", `{"schema":"admin_forensics_replay_v1","generated_at":"x","filters":{},"totals":{"event_count":0,"correlation_count":0},"events":[],"correlations":[],"extra":1}`},
		{"bad event source", `{"schema":"admin_forensics_replay_v1","generated_at":"x","filters":{},"totals":{"event_count":1,"correlation_count":0},"events":[{"sequence":1,"source":"robot","id":"e","created_at":"t","correlation_id":"c","action":"a","target_type":"t","target_id":null,"actor_user_id":null,"actor_email":null,"redaction_policy":"none","metadata":{},"before_data":null,"after_data":null}],"correlations":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateBundleJSON([]byte(tt.raw)))
		})
	}
}

func TestWriteBundle(t *testing.T) {
	bundle := BuildReplayBundle([]ChangeRecord{
		event("e1", SourceUser, "2026-05-01T10:00:01.000Z", ActionTripUpdated, map[string]any{"note": "<b>&"}),
	}, BundleOptions{GeneratedAt: "2026-05-02T00:00:00.000Z"})

	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, bundle))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{\n  \"schema\": \"admin_forensics_replay_v1\","))
	assert.Contains(t, out, `"note": "<b>&"`)
	require.NoError(t, ValidateBundleJSON(buf.Bytes()))
}

func TestBundleFilename(t *testing.T) {
	tests := []struct {
		generatedAt string
		expected    string
	}{
		{"2026-05-02T10:11:12.345Z", "admin-forensics-replay-v1-2026-05-02T10-11-12-345Z.json"},
		{"", "admin-forensics-replay-v1-undated.json"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := BundleFilename(ReplayBundle{GeneratedAt: tt.generatedAt})
			if got != tt.expected {
				t.Errorf("BundleFilename(%q) = %q, want %q", tt.generatedAt, got, tt.expected)
			}
		})
	}
}

func TestSortTimeline(t *testing.T) {
	records := []ChangeRecord{
		{ID: "b", CreatedAt: "2026-05-01T10:00:00.000Z"},
		{ID: "c", CreatedAt: "2026-05-01T09:00:00.000Z"},
		{ID: "a", CreatedAt: "2026-05-01T10:00:00.000Z"},
	}

	ids := func(rs []ChangeRecord) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	assert.Equal(t, []string{"c", "a", "b"}, ids(SortTimeline(records, false)))
	assert.Equal(t, []string{"b", "a", "c"}, ids(SortTimeline(records, true)))
	assert.Equal(t, []string{"b", "c", "a"}, ids(records))
}
