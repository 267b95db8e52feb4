package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/slackagent/internal/cost"
)

type costReport struct {
	BudgetUSD float64             `json:"budget_usd"`
	SpentUSD  float64             `json:"spent_usd"`
	Percent   float64             `json:"percent"`
	Channels  []cost.ChannelSpend `json:"channels"`
}

func newCostStatusCmd(configPath *string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show this month's spend against the budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := openState(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			tracker := cost.NewTracker(db, cfg.Budget.MonthlyUSD, cfg.Budget.WarnPercent)
			spent, err := tracker.MonthlySpend(ctx)
			if err != nil {
				return fmt.Errorf("monthly spend: %w", err)
			}
			pct, err := tracker.BudgetPercent(ctx)
			if err != nil {
				return fmt.Errorf("budget percent: %w", err)
			}
			byChannel, err := tracker.SpendByChannel(ctx)
			if err != nil {
				return fmt.Errorf("spend by channel: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, costReport{
					BudgetUSD: tracker.Budget(),
					SpentUSD:  spent,
					Percent:   pct,
					Channels:  byChannel,
				})
			}

			status, err := tracker.FormatBudgetStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Monthly spend: %s\n", status)
			for _, c := range byChannel {
				fmt.Fprintf(out, "  %-12s $%.2f (%d tasks)\n", c.ChannelID, c.CostUSD, c.Tasks)
			}
			if over, err := tracker.OverWarnThreshold(ctx); err == nil && over {
				fmt.Fprintf(out, "Warning: spend is above %.0f%% of the monthly budget.\n", cfg.Budget.WarnPercent)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON")
	return cmd
}
