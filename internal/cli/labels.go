package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tripplanner/backend/internal/forensics"
)

func NewLabelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "labels [action...]",
		Short: "Show display labels for action codes",
		Long:  "Without arguments, lists the known action catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var labels []forensics.ActionLabel
			if len(args) == 0 {
				labels = forensics.KnownActionLabels()
			} else {
				for _, a := range args {
					labels = append(labels, forensics.ActionLabelFor(a))
				}
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), labels)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, l := range labels {
				fmt.Fprintf(tw, "%s\t%s\n", l.Action, l.Label)
			}
			return tw.Flush()
		},
	}
}
