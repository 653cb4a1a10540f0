package forensics

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/admin_forensics_replay_v1.json
var bundleSchemaJSON string

var (
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
	compileSchemaOnce sync.Once
)

// WriteBundle writes the bundle as indented JSON, the same form the admin UI
// offers for download.
func WriteBundle(w io.Writer, bundle ReplayBundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(bundle); err != nil {
		return fmt.Errorf("encode replay bundle: %w", err)
	}
	return nil
}

// BundleFilename suggests a download name derived from generated_at.
func BundleFilename(bundle ReplayBundle) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(bundle.GeneratedAt)
	if stamp == "" {
		stamp = "undated"
	}
	return fmt.Sprintf("%s-%s.json", strings.ReplaceAll(BundleSchema, "_", "-"), stamp)
}

// ValidateBundleJSON checks raw bundle JSON against the embedded
// admin_forensics_replay_v1 schema.
func ValidateBundleJSON(raw []byte) error {
	schema, err := bundleSchema()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("bundle does not match %s: %w", BundleSchema, err)
	}
	return nil
}

func bundleSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		compiledSchema, compiledSchemaErr = jsonschema.CompileString(BundleSchema+".json", bundleSchemaJSON)
		if compiledSchemaErr != nil {
			compiledSchemaErr = fmt.Errorf("compile bundle schema: %w", compiledSchemaErr)
		}
	})
	return compiledSchema, compiledSchemaErr
}
