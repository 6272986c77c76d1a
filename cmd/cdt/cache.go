package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/cost-dashboard-tui/internal/console"
)

func newCacheCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the result cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache entry counts",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, mgr, cleanup, err := setup(flags)
				if err != nil {
					return err
				}
				defer cleanup()

				st, err := mgr.Cache().Stats()
				if err != nil {
					return err
				}
				newest := "-"
				if !st.Newest.IsZero() {
					newest = humanize.Time(st.Newest)
				}
				out := console.New()
				out.RenderCacheStats(st.Entries, st.Valid, st.Expired, newest)
				if st.Corrupt > 0 {
					out.LogWarning("%d corrupt entries, run `cdt cache prune`", st.Corrupt)
				}
				out.LogInfo("%d subscriptions cached", st.Subscriptions)
				return nil
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Delete expired and corrupt entries",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, mgr, cleanup, err := setup(flags)
				if err != nil {
					return err
				}
				defer cleanup()

				n, err := mgr.Cache().Prune()
				if err != nil {
					return err
				}
				if err := mgr.Database().Compact(cmd.Context()); err != nil {
					return err
				}
				console.New().LogSuccess("Removed %d entries", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cache entry",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, mgr, cleanup, err := setup(flags)
				if err != nil {
					return err
				}
				defer cleanup()

				n, err := mgr.Cache().Clear()
				if err != nil {
					return err
				}
				if err := mgr.Database().Compact(cmd.Context()); err != nil {
					return err
				}
				console.New().LogSuccess("Removed %d entries", n)
				return nil
			},
		},
	)
	return cmd
}
