package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tripplanner/backend/internal/forensics"
)

type undoResolution struct {
	ID           string                `json:"id"`
	SourceID     string                `json:"source_id,omitempty"`
	Resolved     bool                  `json:"resolved"`
	InvertedDiff []forensics.DiffEntry `json:"inverted_diff,omitempty"`
}

func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <records-file>",
		Short: "Resolve undo records against the other records in the file",
		Long: `For every admin.audit.undo record, find the change it reverses within the
same file and print the inverted diff the undo applied. Chains of undos are
followed up to ` + fmt.Sprint(forensics.MaxUndoHops) + ` hops.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(rootOpts, args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			index := forensics.IndexTimeline(records)
			out := []undoResolution{}
			for _, r := range forensics.SortTimeline(records, false) {
				if r.Action != forensics.ActionAdminUndo {
					continue
				}
				res := undoResolution{ID: r.ID}
				res.SourceID, _ = forensics.ResolveUndoSourceID(r)
				res.InvertedDiff, res.Resolved = forensics.ResolveInvertedDiff(r, index)
				out = append(out, res)
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for _, res := range out {
				switch {
				case res.Resolved:
					fmt.Fprintf(w, "%s undoes %s\n", res.ID, res.SourceID)
					writeEntries(w, res.InvertedDiff)
				case res.SourceID != "":
					fmt.Fprintf(w, "%s undoes %s (unresolved)\n", res.ID, res.SourceID)
				default:
					fmt.Fprintf(w, "%s has no undo reference\n", res.ID)
				}
			}
			return nil
		},
	}
}
