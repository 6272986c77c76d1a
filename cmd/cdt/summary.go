package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/j-veylop/cost-dashboard-tui/internal/console"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
)

func newSummaryCmd(flags *globalFlags) *cobra.Command {
	var (
		period string
		group  string
		trend  bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the period cost summary of every subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, cleanup, err := setup(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			settings := mgr.Settings().Get()
			if period == "" {
				period = settings.AggregatePeriod
			}
			if group == "" {
				group = settings.SubscriptionGroup
			}

			out := console.New()
			status := out.Status("Loading subscriptions...")
			ctx := cmd.Context()

			subs, err := mgr.LoadSubscriptions(ctx)
			if err != nil {
				status.Stop()
				return fmt.Errorf("failed to load subscriptions: %w", err)
			}
			subs = models.FilterByGroup(subs, group)
			if len(subs) == 0 {
				status.Stop()
				out.LogWarning("No subscriptions in group %q", group)
				return nil
			}

			ids := models.SubscriptionIDs(subs)
			status.Update(fmt.Sprintf("Fetching costs for %d subscriptions...", len(ids)))
			snap, err := mgr.Refresh(ctx, overview.Request{Subscriptions: ids, Filters: filters.Defaults()})
			status.Stop()
			if err != nil {
				out.LogError("Refresh incomplete: %v", err)
			}

			summary := snap.Summary(ids, models.ParsePeriod(period), time.Now())
			out.RenderSummary(console.SubscriptionRows(subs, snap.Unfiltered), summary, settings.Budget, currencyOf(snap.Unfiltered, ids))
			if trend {
				out.RenderTrend(summary.Points)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "aggregate period (YTD, QTD, MTD); defaults to the saved setting")
	cmd.Flags().StringVar(&group, "group", "", "subscription group; defaults to the saved setting")
	cmd.Flags().BoolVar(&trend, "trend", true, "print the cost trend")
	return cmd
}

// currencyOf returns the currency of the first loaded subscription.
func currencyOf(slots overview.Slots, ids []string) string {
	for _, r := range slots.Results(ids) {
		if r != nil && r.Currency != "" {
			return r.Currency
		}
	}
	return ""
}
