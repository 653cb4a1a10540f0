package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tripplanner/backend/internal/forensics"
)

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bundle-file>",
		Short: "Check a bundle against the admin_forensics_replay_v1 schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			data, err := toJSON(raw)
			if err != nil {
				return err
			}
			if err := forensics.ValidateBundleJSON(data); err != nil {
				return fmt.Errorf("invalid bundle: %w", err)
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"valid": true, "schema": forensics.BundleSchema})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "valid %s bundle\n", forensics.BundleSchema)
			return err
		},
	}
}
