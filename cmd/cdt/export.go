package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/cost-dashboard-tui/internal/console"
	"github.com/j-veylop/cost-dashboard-tui/internal/export"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	var (
		subscription string
		formats      string
		dir          string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the cost details of one subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subscription == "" {
				return errors.New("--subscription is required")
			}
			fs, err := export.ParseFormats(formats)
			if err != nil {
				return err
			}

			_, mgr, cleanup, err := setup(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if dir == "" {
				dir = mgr.Settings().Get().ReportDir
			}

			out := console.New()
			status := out.Status("Fetching " + subscription + "...")
			ctx := cmd.Context()
			result, err := mgr.FetchDetail(ctx, subscription, filters.Defaults())
			status.Stop()
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", subscription, err)
			}

			exporter := export.New(dir)
			for _, f := range fs {
				path, err := exporter.Export(result, f)
				if err != nil {
					out.LogError("%s export failed: %v", f, err)
					continue
				}
				out.LogSuccess("Wrote %s", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&subscription, "subscription", "s", "", "subscription id")
	cmd.Flags().StringVar(&formats, "format", "csv", "comma-separated formats (csv, json, pdf)")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory; defaults to the saved report directory")
	return cmd
}
