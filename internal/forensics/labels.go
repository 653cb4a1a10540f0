package forensics

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ActionLabel is the display form of an action code.
type ActionLabel struct {
	Action     string `json:"action"`
	Label      string `json:"label"`
	StyleClass string `json:"style_class"`
}

const defaultActionStyle = "border-slate-200 bg-slate-50 text-slate-700"

var actionLabels = map[string]ActionLabel{
	ActionTripCreated:         {Label: "Created trip", StyleClass: "border-emerald-200 bg-emerald-50 text-emerald-800"},
	ActionTripUpdated:         {Label: "Updated trip", StyleClass: "border-sky-200 bg-sky-50 text-sky-800"},
	ActionTripArchived:        {Label: "Archived trip", StyleClass: "border-amber-200 bg-amber-50 text-amber-800"},
	ActionTripDeleted:         {Label: "Deleted trip", StyleClass: "border-rose-200 bg-rose-50 text-rose-800"},
	ActionTripShareCreated:    {Label: "Created share link", StyleClass: "border-teal-200 bg-teal-50 text-teal-800"},
	ActionProfileUpdated:      {Label: "Updated profile", StyleClass: "border-indigo-200 bg-indigo-50 text-indigo-800"},
	ActionAdminOverrideCommit: {Label: "Admin override", StyleClass: "border-violet-200 bg-violet-50 text-violet-800"},
	ActionAdminUndo:           {Label: "Undid change", StyleClass: "border-orange-200 bg-orange-50 text-orange-800"},
	ActionAdminExport:         {Label: "Exported audit bundle", StyleClass: defaultActionStyle},
	ActionAdminArchive:        {Label: "Archived audit window", StyleClass: defaultActionStyle},
}

// ActionLabelFor maps an action code to its display label. Unknown codes are
// title-cased word by word, e.g. "trip.shared_link_rotated" becomes
// "Trip Shared Link Rotated".
func ActionLabelFor(action string) ActionLabel {
	if known, ok := actionLabels[action]; ok {
		known.Action = action
		return known
	}
	return ActionLabel{Action: action, Label: formatActionCode(action), StyleClass: defaultActionStyle}
}

// KnownActionLabels lists the catalog sorted by action code.
func KnownActionLabels() []ActionLabel {
	out := make([]ActionLabel, 0, len(actionLabels))
	for action := range actionLabels {
		out = append(out, ActionLabelFor(action))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}

func formatActionCode(action string) string {
	tokens := strings.FieldsFunc(action, func(r rune) bool {
		return r == '.' || r == '_' || unicode.IsSpace(r)
	})
	if len(tokens) == 0 {
		return "Unknown action"
	}
	// Casers are stateful; one per call.
	caser := cases.Title(language.English)
	for i, t := range tokens {
		tokens[i] = caser.String(t)
	}
	return strings.Join(tokens, " ")
}
