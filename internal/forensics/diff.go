package forensics

import "strings"

// Snapshot keys that change on every write and carry no audit signal.
var noiseKeys = map[string]struct{}{
	"updated_at":              {},
	"created_at":              {},
	"onboarding_completed_at": {},
}

// ExtractDiffEntries returns the field-level changes recorded by record.
//
// Before/after snapshots win whenever both are present and non-empty. Without
// them the diff is reconstructed from action-specific metadata. The result is
// never nil and never contains an entry whose two sides are equal.
func ExtractDiffEntries(record ChangeRecord) []DiffEntry {
	if record.BeforeData != nil && record.AfterData != nil &&
		len(record.BeforeData)+len(record.AfterData) > 0 {
		return snapshotEntries(record.BeforeData, record.AfterData)
	}

	var out []DiffEntry
	switch md := decodeMetadata(record.Action, record.Metadata).(type) {
	case tripArchivedMetadata:
		out = archivedEntries(md)
	case tripUpdatedMetadata:
		out = updatedEntries(md)
	case tripCreatedMetadata:
		out = lifecycleEntries(md.lifecycle, false)
	}
	if out == nil {
		return []DiffEntry{}
	}
	return out
}

// snapshotEntries diffs two snapshots key by key, sorted by key. A key
// missing on one side reads as null there.
func snapshotEntries(before, after map[string]any) []DiffEntry {
	out := []DiffEntry{}
	for _, key := range unionKeys(before, after) {
		if _, noisy := noiseKeys[key]; noisy {
			continue
		}
		bv, av := before[key], after[key]
		if valuesEqual(bv, av) {
			continue
		}
		out = append(out, DiffEntry{Key: key, BeforeValue: bv, AfterValue: av})
	}
	return out
}

func archivedEntries(md tripArchivedMetadata) []DiffEntry {
	if md.statusBefore == nil && md.statusAfter == nil {
		return nil
	}
	if valuesEqual(md.statusBefore, md.statusAfter) {
		return nil
	}
	return []DiffEntry{{Key: "status", BeforeValue: md.statusBefore, AfterValue: md.statusAfter}}
}

// updatedEntries concatenates timeline, visual-label and lifecycle entries.
// The free-text visual label is only consulted when the structured timeline
// diff yielded nothing.
func updatedEntries(md tripUpdatedMetadata) []DiffEntry {
	out := md.timeline.entries()
	if len(out) == 0 {
		out = append(out, visualLabelEntries(md.versionLabel)...)
	}
	return append(out, lifecycleEntries(md.lifecycle, true)...)
}

// lifecycleEntries emits one entry per changed lifecycle field. With
// requireBefore false a missing before side reads as null, which surfaces
// initial values on creation.
func lifecycleEntries(pairs []lifecyclePair, requireBefore bool) []DiffEntry {
	var out []DiffEntry
	for _, p := range pairs {
		if !p.hasAfter || (requireBefore && !p.hasBefore) {
			continue
		}
		if valuesEqual(p.before, p.after) {
			continue
		}
		out = append(out, DiffEntry{Key: p.field, BeforeValue: p.before, AfterValue: p.after})
	}
	return out
}

const visualLabelPrefix = "visual:"

// visualLabelEntries parses the legacy version label format
//
//	Visual: Map view: Standard → Satellite · Zoom: 5 → 7
//
// Everything before the first "Visual:" marker is ignored. Segments are split
// on "·", a leading "Visual:" on a segment is dropped, the field name runs up
// to the first ":" and the value is split once on "→". A value without an
// arrow becomes an after-only entry.
func visualLabelEntries(label string) []DiffEntry {
	start := indexFold(label, visualLabelPrefix)
	if start < 0 {
		return nil
	}

	var out []DiffEntry
	for _, segment := range strings.Split(label[start+len(visualLabelPrefix):], "·") {
		segment = strings.TrimSpace(segment)
		if indexFold(segment, visualLabelPrefix) == 0 {
			segment = strings.TrimSpace(segment[len(visualLabelPrefix):])
		}
		if segment == "" {
			continue
		}

		field, value := "change", segment
		if i := strings.Index(segment, ":"); i >= 0 {
			if name := strings.TrimSpace(segment[:i]); name != "" {
				field = name
			}
			value = strings.TrimSpace(segment[i+1:])
		}
		key := "visual_" + normalizeVisualField(field)

		before, after, hasArrow := strings.Cut(value, "→")
		if !hasArrow {
			if value == "" {
				continue
			}
			out = append(out, DiffEntry{Key: key, BeforeValue: nil, AfterValue: value})
			continue
		}
		before, after = strings.TrimSpace(before), strings.TrimSpace(after)
		if before == after {
			continue
		}
		out = append(out, DiffEntry{Key: key, BeforeValue: before, AfterValue: after})
	}
	return out
}
