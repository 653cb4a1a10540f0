package forensics

import (
	"sort"
	"time"
)

// BundleSchema tags every replay bundle. Bump it on any wire change.
const BundleSchema = "admin_forensics_replay_v1"

// TimestampLayout matches the millisecond UTC form the audit tables emit, so
// generated timestamps sort lexically alongside record timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ForensicsEvent is a ChangeRecord normalized for export.
type ForensicsEvent struct {
	Sequence        int            `json:"sequence"`
	Source          Source         `json:"source"`
	ID              string         `json:"id"`
	CreatedAt       string         `json:"created_at"`
	CorrelationID   string         `json:"correlation_id"`
	Action          string         `json:"action"`
	TargetType      string         `json:"target_type"`
	TargetID        *string        `json:"target_id"`
	ActorUserID     *string        `json:"actor_user_id"`
	ActorEmail      *string        `json:"actor_email"`
	RedactionPolicy string         `json:"redaction_policy"`
	Metadata        map[string]any `json:"metadata"`
	BeforeData      map[string]any `json:"before_data"`
	AfterData       map[string]any `json:"after_data"`
}

// CorrelationGroup aggregates the events sharing one correlation id.
type CorrelationGroup struct {
	CorrelationID string   `json:"correlation_id"`
	EventIDs      []string `json:"event_ids"`
	Actions       []string `json:"actions"`
	FirstSeenAt   string   `json:"first_seen_at"`
	LastSeenAt    string   `json:"last_seen_at"`
}

type BundleTotals struct {
	EventCount       int `json:"event_count"`
	CorrelationCount int `json:"correlation_count"`
}

// ReplayBundle is the durable export artifact. Its JSON form is a stable
// contract; see schema/admin_forensics_replay_v1.json.
type ReplayBundle struct {
	Schema       string             `json:"schema"`
	GeneratedAt  string             `json:"generated_at"`
	Filters      map[string]any     `json:"filters"`
	Totals       BundleTotals       `json:"totals"`
	Events       []ForensicsEvent   `json:"events"`
	Correlations []CorrelationGroup `json:"correlations"`
}

// BundleOptions customizes BuildReplayBundle. A zero value stamps the bundle
// with the current time and an empty filter set.
type BundleOptions struct {
	GeneratedAt string
	Filters     map[string]any
}

// BuildReplayBundle normalizes, orders, redacts and groups records into a
// replay bundle. The sort is stable, so records with equal CreatedAt keep
// their input order.
func BuildReplayBundle(records []ChangeRecord, opts BundleOptions) ReplayBundle {
	sorted := make([]ChangeRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})

	events := make([]ForensicsEvent, 0, len(sorted))
	for i, r := range sorted {
		events = append(events, RedactEvent(normalizeEvent(r, i+1)))
	}
	correlations := groupCorrelations(events)

	generatedAt := opts.GeneratedAt
	if generatedAt == "" {
		generatedAt = time.Now().UTC().Format(TimestampLayout)
	}
	filters := opts.Filters
	if filters == nil {
		filters = map[string]any{}
	}

	return ReplayBundle{
		Schema:      BundleSchema,
		GeneratedAt: generatedAt,
		Filters:     filters,
		Totals: BundleTotals{
			EventCount:       len(events),
			CorrelationCount: len(correlations),
		},
		Events:       events,
		Correlations: correlations,
	}
}

func normalizeEvent(r ChangeRecord, sequence int) ForensicsEvent {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ForensicsEvent{
		Sequence:        sequence,
		Source:          r.Source,
		ID:              r.ID,
		CreatedAt:       r.CreatedAt,
		CorrelationID:   CorrelationIDFor(r),
		Action:          r.Action,
		TargetType:      r.TargetType,
		TargetID:        r.TargetID,
		ActorUserID:     r.ActorUserID,
		ActorEmail:      r.ActorEmail,
		RedactionPolicy: RedactionPolicyFor(r),
		Metadata:        metadata,
		BeforeData:      r.BeforeData,
		AfterData:       r.AfterData,
	}
}

// CorrelationIDFor derives the grouping key: metadata correlation_id, then
// event_id, then "<source>:<id>".
func CorrelationIDFor(r ChangeRecord) string {
	if id := firstString(r.Metadata, "correlation_id", "event_id"); id != "" {
		return id
	}
	return string(r.Source) + ":" + r.ID
}

func groupCorrelations(events []ForensicsEvent) []CorrelationGroup {
	groups := make([]CorrelationGroup, 0)
	index := make(map[string]int)

	for _, e := range events {
		pos, ok := index[e.CorrelationID]
		if !ok {
			groups = append(groups, CorrelationGroup{
				CorrelationID: e.CorrelationID,
				EventIDs:      []string{},
				Actions:       []string{},
				FirstSeenAt:   e.CreatedAt,
				LastSeenAt:    e.CreatedAt,
			})
			pos = len(groups) - 1
			index[e.CorrelationID] = pos
		}

		g := &groups[pos]
		g.EventIDs = append(g.EventIDs, e.ID)
		if !containsString(g.Actions, e.Action) {
			g.Actions = append(g.Actions, e.Action)
		}
		if e.CreatedAt < g.FirstSeenAt {
			g.FirstSeenAt = e.CreatedAt
		}
		if e.CreatedAt > g.LastSeenAt {
			g.LastSeenAt = e.CreatedAt
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].FirstSeenAt < groups[j].FirstSeenAt
	})
	return groups
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SortTimeline returns a copy of records ordered by CreatedAt with ties broken
// by ID, oldest first or newest first.
func SortTimeline(records []ChangeRecord, newestFirst bool) []ChangeRecord {
	out := make([]ChangeRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if newestFirst {
			a, b = b, a
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
	return out
}

// IndexTimeline builds the lookup ResolveInvertedDiff walks. A later record
// with a duplicate id replaces an earlier one.
func IndexTimeline(records []ChangeRecord) map[string]TimelineEntry {
	index := make(map[string]TimelineEntry, len(records))
	for _, r := range records {
		index[r.ID] = TimelineEntry{Kind: r.Source, Record: r}
	}
	return index
}
