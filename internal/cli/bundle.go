package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tripplanner/backend/internal/forensics"
	"github.com/tripplanner/backend/internal/models"
	"github.com/tripplanner/backend/internal/services"
)

type bundleOptions struct {
	output      string
	generatedAt string
	search      string
	from        string
	to          string
	sources     []string
	actions     []string
	targetTypes []string
	actors      []string
	eventIDs    []string
}

func NewBundleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &bundleOptions{}

	cmd := &cobra.Command{
		Use:   "bundle <records-file>",
		Short: "Build a replay bundle from change records",
		Long: `Build an admin_forensics_replay_v1 bundle from change records, applying the
same filters as the admin export. The bundle is written as indented JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the bundle to a file instead of stdout")
	cmd.Flags().StringVar(&opts.generatedAt, "generated-at", "", "RFC3339 generation time (default now)")
	cmd.Flags().StringVar(&opts.search, "search", "", "case-insensitive substring filter")
	cmd.Flags().StringVar(&opts.from, "from", "", "RFC3339 lower bound, inclusive")
	cmd.Flags().StringVar(&opts.to, "to", "", "RFC3339 upper bound, inclusive")
	cmd.Flags().StringSliceVar(&opts.sources, "source", nil, "keep only these sources (admin, user)")
	cmd.Flags().StringSliceVar(&opts.actions, "action", nil, "keep only these action codes")
	cmd.Flags().StringSliceVar(&opts.targetTypes, "target-type", nil, "keep only these target types")
	cmd.Flags().StringSliceVar(&opts.actors, "actor", nil, "keep only these actor user ids")
	cmd.Flags().StringSliceVar(&opts.eventIDs, "event-id", nil, "keep only these record ids")

	return cmd
}

func (o *bundleOptions) filters() (services.ExportFilters, error) {
	f := services.ExportFilters{
		Search:       o.search,
		Sources:      o.sources,
		Actions:      o.actions,
		TargetTypes:  o.targetTypes,
		ActorUserIDs: o.actors,
		EventIDs:     o.eventIDs,
	}
	var err error
	if f.DateFrom, err = parseFlagTime("from", o.from); err != nil {
		return f, err
	}
	if f.DateTo, err = parseFlagTime("to", o.to); err != nil {
		return f, err
	}
	return f, f.Validate()
}

func parseFlagTime(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func runBundle(rootOpts *RootOptions, opts *bundleOptions, path string, cmd *cobra.Command) error {
	filters, err := opts.filters()
	if err != nil {
		return err
	}
	generatedAt, err := parseFlagTime("generated-at", opts.generatedAt)
	if err != nil {
		return err
	}

	records, err := loadRecords(rootOpts, path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	bundleOpts := forensics.BundleOptions{Filters: filters.AsMap()}
	if generatedAt != nil {
		bundleOpts.GeneratedAt = models.FormatTimestamp(*generatedAt)
	}
	bundle := forensics.BuildReplayBundle(services.ApplyExportFilters(records, filters), bundleOpts)

	if opts.output == "" {
		return forensics.WriteBundle(cmd.OutOrStdout(), bundle)
	}
	if err := writeBundleFile(opts.output, bundle); err != nil {
		return err
	}

	summary := map[string]any{
		"path":              opts.output,
		"event_count":       bundle.Totals.EventCount,
		"correlation_count": bundle.Totals.CorrelationCount,
	}
	if rootOpts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), summary)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events in %d correlations to %s\n",
		bundle.Totals.EventCount, bundle.Totals.CorrelationCount, opts.output)
	return err
}

func writeBundleFile(path string, bundle forensics.ReplayBundle) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return forensics.WriteBundle(f, bundle)
}
