package forensics

// Redaction policy values. Any policy other than RedactionNone masks the
// redacted fields.
const (
	RedactionNone = "none"
	RedactedValue = "[redacted]"
)

var redactedFields = []string{"error_message"}

// RedactionPolicyFor reads metadata.redaction_policy, defaulting to "none".
func RedactionPolicyFor(r ChangeRecord) string {
	if policy := firstString(r.Metadata, "redaction_policy"); policy != "" {
		return policy
	}
	return RedactionNone
}

// RedactEvent masks redacted fields in metadata, before_data and after_data.
// Maps are copied before masking and other keys pass through, so applying it
// twice gives the same result as applying it once.
func RedactEvent(e ForensicsEvent) ForensicsEvent {
	if e.RedactionPolicy == "" || e.RedactionPolicy == RedactionNone {
		return e
	}
	e.Metadata = redactMap(e.Metadata)
	e.BeforeData = redactMap(e.BeforeData)
	e.AfterData = redactMap(e.AfterData)
	return e
}

func redactMap(m map[string]any) map[string]any {
	hit := false
	for _, f := range redactedFields {
		if _, ok := m[f]; ok {
			hit = true
			break
		}
	}
	if !hit {
		return m
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, f := range redactedFields {
		if _, ok := out[f]; ok {
			out[f] = RedactedValue
		}
	}
	return out
}
