package forensics

// actionMetadata is the decoded, action-specific view of a record's metadata.
// Unrecognized actions decode to nil and produce no diff entries.
type actionMetadata interface {
	isActionMetadata()
}

type tripArchivedMetadata struct {
	statusBefore any
	statusAfter  any
}

type tripUpdatedMetadata struct {
	timeline     timelineDiff
	versionLabel string
	lifecycle    []lifecyclePair
}

type tripCreatedMetadata struct {
	lifecycle []lifecyclePair
}

func (tripArchivedMetadata) isActionMetadata() {}
func (tripUpdatedMetadata) isActionMetadata()  {}
func (tripCreatedMetadata) isActionMetadata()  {}

// lifecyclePair is a <field>_before / <field>_after pair read from metadata.
type lifecyclePair struct {
	field     string
	before    any
	after     any
	hasBefore bool
	hasAfter  bool
}

var lifecycleFields = []string{
	"status",
	"title",
	"show_on_public_profile",
	"trip_expires_at",
	"source_kind",
}

func decodeMetadata(action string, md map[string]any) actionMetadata {
	switch action {
	case ActionTripArchived:
		return decodeTripArchived(md)
	case ActionTripUpdated:
		return tripUpdatedMetadata{
			timeline:     decodeTimelineDiff(md),
			versionLabel: firstString(md, "version_label"),
			lifecycle:    decodeLifecycle(md),
		}
	case ActionTripCreated:
		return tripCreatedMetadata{lifecycle: decodeLifecycle(md)}
	default:
		return nil
	}
}

// decodeTripArchived fills the missing side with the implied status when only
// one side was recorded. Both sides stay nil when neither was.
func decodeTripArchived(md map[string]any) tripArchivedMetadata {
	before := md["status_before"]
	after := md["status_after"]
	if before == nil && after == nil {
		return tripArchivedMetadata{}
	}
	if before == nil {
		before = "active"
	}
	if after == nil {
		after = "archived"
	}
	return tripArchivedMetadata{statusBefore: before, statusAfter: after}
}

func decodeLifecycle(md map[string]any) []lifecyclePair {
	pairs := make([]lifecyclePair, 0, len(lifecycleFields))
	for _, field := range lifecycleFields {
		before, hasBefore := md[field+"_before"]
		after, hasAfter := md[field+"_after"]
		if !hasBefore && !hasAfter {
			continue
		}
		pairs = append(pairs, lifecyclePair{
			field:     field,
			before:    before,
			after:     after,
			hasBefore: hasBefore,
			hasAfter:  hasAfter,
		})
	}
	return pairs
}
