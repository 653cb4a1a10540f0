package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tripplanner/backend/internal/forensics"
)

type recordDiff struct {
	ID     string                `json:"id"`
	Source forensics.Source      `json:"source"`
	Action string                `json:"action"`
	Label  string                `json:"label"`
	Diff   []forensics.DiffEntry `json:"diff"`
}

func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "diff <records-file>",
		Short: "Print field-level diffs of change records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(rootOpts, args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			var out []recordDiff
			for _, r := range forensics.SortTimeline(records, false) {
				if len(ids) > 0 && !containsID(ids, r.ID) {
					continue
				}
				out = append(out, recordDiff{
					ID:     r.ID,
					Source: r.Source,
					Action: r.Action,
					Label:  forensics.ActionLabelFor(r.Action).Label,
					Diff:   forensics.ExtractDiffEntries(r),
				})
			}

			if rootOpts.Format == "json" {
				if out == nil {
					out = []recordDiff{}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, d := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", d.Source, d.ID, d.Label)
				writeEntries(cmd.OutOrStdout(), d.Diff)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "id", nil, "only these record ids")
	return cmd
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func writeEntries(w io.Writer, entries []forensics.DiffEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "  (no changes)")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "  %s: %s -> %s\n", e.Key, renderValue(e.BeforeValue), renderValue(e.AfterValue))
	}
}

func renderValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
