package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tripplanner/backend/internal/forensics"
	"gopkg.in/yaml.v3"
)

// readInput reads path, or in when path is "-".
func readInput(path string, in io.Reader) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

// toJSON normalizes JSON or YAML input into JSON. YAML is a superset of
// JSON, so both go through the YAML decoder.
func toJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("input is not JSON-compatible: %w", err)
	}
	return out, nil
}

func decodeRecords(raw []byte) ([]forensics.ChangeRecord, error) {
	data, err := toJSON(raw)
	if err != nil {
		return nil, err
	}

	var records []forensics.ChangeRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, validateRecords(records)
	}
	var wrapped struct {
		Records []forensics.ChangeRecord `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("expected a list of change records: %w", err)
	}
	return wrapped.Records, validateRecords(wrapped.Records)
}

func validateRecords(records []forensics.ChangeRecord) error {
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record %d: missing id", i)
		}
		if !r.Source.Valid() {
			return fmt.Errorf("record %s: unknown source %q", r.ID, r.Source)
		}
	}
	return nil
}

func loadRecords(opts *RootOptions, path string, in io.Reader) ([]forensics.ChangeRecord, error) {
	raw, err := readInput(path, in)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}
	opts.log.Sugar().Debugf("loaded %d records from %s", len(records), path)
	return records, nil
}
