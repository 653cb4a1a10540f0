package forensics

import "regexp"

// MaxUndoHops bounds how many undo records ResolveInvertedDiff follows before
// giving up on reaching a user change.
const MaxUndoHops = 10

// Legacy undo records only carry the source id inside their label.
var undoLabelPattern = regexp.MustCompile(`^Audit undo ([A-Za-z0-9_-]+)$`)

// ResolveUndoSourceID returns the id of the record an undo record reverted.
// Structured keys take precedence over the label.
func ResolveUndoSourceID(record ChangeRecord) (string, bool) {
	if id := firstString(record.Metadata, "undo_source_event_id", "source_event_id"); id != "" {
		return id, true
	}
	label, _ := record.Metadata["label"].(string)
	if m := undoLabelPattern.FindStringSubmatch(label); m != nil {
		return m[1], true
	}
	return "", false
}

// ResolveInvertedDiff computes the diff an undo record applied.
//
// The chain of source references is followed through admin undo records until
// a user record is reached. Each hop is one undo, so an odd number of hops
// yields the user change inverted and an even number yields it in its original
// direction. It returns false when the chain breaks, leaves the index, loops,
// lands on a non-undo admin record, exceeds MaxUndoHops, or the user change has
// no diff.
func ResolveInvertedDiff(undo ChangeRecord, timelineByID map[string]TimelineEntry) ([]DiffEntry, bool) {
	origin, hops, ok := traceUndoChain(undo, timelineByID)
	if !ok {
		return nil, false
	}
	entries := ExtractDiffEntries(origin)
	if len(entries) == 0 {
		return nil, false
	}
	if hops%2 == 0 {
		return entries, true
	}
	return InvertEntries(entries), true
}

func traceUndoChain(undo ChangeRecord, timelineByID map[string]TimelineEntry) (ChangeRecord, int, bool) {
	visited := map[string]struct{}{}
	if undo.ID != "" {
		visited[undo.ID] = struct{}{}
	}

	current := undo
	for hops := 1; hops <= MaxUndoHops; hops++ {
		sourceID, ok := ResolveUndoSourceID(current)
		if !ok {
			return ChangeRecord{}, 0, false
		}
		if _, seen := visited[sourceID]; seen {
			return ChangeRecord{}, 0, false
		}
		visited[sourceID] = struct{}{}

		entry, ok := timelineByID[sourceID]
		if !ok {
			return ChangeRecord{}, 0, false
		}
		if entry.Kind == SourceUser {
			return entry.Record, hops, true
		}
		if entry.Record.Action != ActionAdminUndo {
			return ChangeRecord{}, 0, false
		}
		current = entry.Record
	}
	return ChangeRecord{}, 0, false
}

// InvertEntries swaps the before and after side of every entry.
func InvertEntries(entries []DiffEntry) []DiffEntry {
	out := make([]DiffEntry, len(entries))
	for i, e := range entries {
		out[i] = DiffEntry{Key: e.Key, BeforeValue: e.AfterValue, AfterValue: e.BeforeValue}
	}
	return out
}
