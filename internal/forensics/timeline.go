package forensics

import "strings"

const unknownItemLabel = "Unknown item"

type timelineDiff struct {
	transportModes []transportModeChange
	deleted        []itemChange
	added          []itemChange
	updated        []itemChange
	visual         []visualChange
}

type transportModeChange struct {
	label      string
	beforeMode any
	afterMode  any
}

type itemChange struct {
	label         string
	entityType    string
	before        map[string]any
	after         map[string]any
	raw           map[string]any
	changedFields []string
}

type visualChange struct {
	field  string
	before any
	after  any
}

// decodeTimelineDiff prefers timeline_diff_v1 when it carries at least one
// change and falls back to the legacy timeline_diff key.
func decodeTimelineDiff(md map[string]any) timelineDiff {
	if td := decodeTimelineSection(asMap(md["timeline_diff_v1"])); !td.empty() {
		return td
	}
	return decodeTimelineSection(asMap(md["timeline_diff"]))
}

func (td timelineDiff) empty() bool {
	return len(td.transportModes) == 0 && len(td.deleted) == 0 && len(td.added) == 0 &&
		len(td.updated) == 0 && len(td.visual) == 0
}

func decodeTimelineSection(raw map[string]any) timelineDiff {
	var td timelineDiff
	if len(raw) == 0 {
		return td
	}
	for _, m := range asMaps(lookupList(raw, "transport_mode_changes", "transportModeChanges")) {
		beforeMode, _ := lookup(m, "before_mode", "beforeMode")
		afterMode, _ := lookup(m, "after_mode", "afterMode")
		td.transportModes = append(td.transportModes, transportModeChange{
			label:      itemLabel(m),
			beforeMode: beforeMode,
			afterMode:  afterMode,
		})
	}
	for _, m := range asMaps(lookupList(raw, "deleted_items", "deletedItems")) {
		td.deleted = append(td.deleted, decodeItemChange(m))
	}
	for _, m := range asMaps(lookupList(raw, "added_items", "addedItems")) {
		td.added = append(td.added, decodeItemChange(m))
	}
	for _, m := range asMaps(lookupList(raw, "updated_items", "updatedItems")) {
		td.updated = append(td.updated, decodeItemChange(m))
	}
	for _, m := range asMaps(lookupList(raw, "visual_changes", "visualChanges")) {
		field := firstString(m, "field", "label")
		if field == "" {
			field = "change"
		}
		before, _ := lookup(m, "before_value", "beforeValue", "before")
		after, _ := lookup(m, "after_value", "afterValue", "after")
		td.visual = append(td.visual, visualChange{
			field:  normalizeVisualField(field),
			before: before,
			after:  after,
		})
	}
	return td
}

func lookupList(m map[string]any, keys ...string) any {
	v, _ := lookup(m, keys...)
	return v
}

func decodeItemChange(m map[string]any) itemChange {
	before := asMap(m["before"])
	after := asMap(m["after"])

	rawType := firstString(before, "type")
	if rawType == "" {
		rawType = firstString(after, "type")
	}
	if rawType == "" {
		rawType = firstString(m, "type")
	}

	return itemChange{
		label:         itemLabel(m),
		entityType:    normalizeEntityType(rawType),
		before:        before,
		after:         after,
		raw:           m,
		changedFields: asStrings(lookupList(m, "changed_fields", "changedFields")),
	}
}

// itemLabel names a timeline item for diff keys: its title, then the title
// of either snapshot, then its id.
func itemLabel(m map[string]any) string {
	if title := firstString(m, "title"); title != "" {
		return title
	}
	if title := firstString(asMap(m["before"]), "title"); title != "" {
		return title
	}
	if title := firstString(asMap(m["after"]), "title"); title != "" {
		return title
	}
	if id := firstString(m, "item_id", "itemId", "id"); id != "" {
		return id
	}
	return unknownItemLabel
}

func normalizeEntityType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "":
		return "item"
	case "travel-empty":
		return "segment"
	case "travel":
		return "transport"
	}
	if s := snakeCase(t); s != "" {
		return s
	}
	return "item"
}

var visualFieldAliases = map[string]string{
	"map view":        "map_view",
	"route view":      "route_view",
	"city names":      "city_names",
	"map layout":      "map_layout",
	"timeline layout": "timeline_layout",
	"zoom":            "zoom_level",
	"zoom level":      "zoom_level",
}

func normalizeVisualField(field string) string {
	if alias, ok := visualFieldAliases[strings.ToLower(strings.TrimSpace(field))]; ok {
		return alias
	}
	if s := snakeCase(field); s != "" {
		return s
	}
	return "change"
}

// entries flattens the diff in its fixed category order:
// transport, deleted, added, updated, visual.
func (td timelineDiff) entries() []DiffEntry {
	var out []DiffEntry

	for _, c := range td.transportModes {
		if valuesEqual(c.beforeMode, c.afterMode) {
			continue
		}
		out = append(out, DiffEntry{
			Key:         subItemKey("transport_mode", c.label),
			BeforeValue: c.beforeMode,
			AfterValue:  c.afterMode,
		})
	}

	for _, c := range td.deleted {
		var before any = c.raw
		if c.before != nil {
			before = c.before
		}
		out = append(out, DiffEntry{
			Key:         subItemKey("deleted_"+c.entityType, c.label),
			BeforeValue: before,
			AfterValue:  nil,
		})
	}

	for _, c := range td.added {
		var after any = c.raw
		if c.after != nil {
			after = c.after
		}
		out = append(out, DiffEntry{
			Key:         subItemKey("added_"+c.entityType, c.label),
			BeforeValue: nil,
			AfterValue:  after,
		})
	}

	for _, c := range td.updated {
		fields := c.changedFields
		if len(fields) == 0 {
			fields = unionKeys(c.before, c.after)
		}
		for _, field := range fields {
			before := c.before[field]
			after := c.after[field]
			if valuesEqual(before, after) {
				continue
			}
			out = append(out, DiffEntry{
				Key:         subItemKey("updated_"+field, c.label),
				BeforeValue: before,
				AfterValue:  after,
			})
		}
	}

	for _, c := range td.visual {
		if valuesEqual(c.before, c.after) {
			continue
		}
		out = append(out, DiffEntry{
			Key:         "visual_" + c.field,
			BeforeValue: c.before,
			AfterValue:  c.after,
		})
	}

	return out
}

func subItemKey(kind, label string) string {
	return kind + " · " + label
}
