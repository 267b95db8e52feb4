package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/slackagent/internal/tui/watch"
)

func newWatchCmd(configPath *string) *cobra.Command {
	var apiURL, apiKey, channel string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of channels, tasks and events",
		Long: "Follows the admin API event stream. The token needs events:ro and tasks:ro.\n\n" +
			"Keys: q quits, up/down (k/j) selects a channel.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiURL == "" {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return fmt.Errorf("%w (or pass --api-url)", err)
				}
				if !cfg.API.Enabled {
					return fmt.Errorf("api is disabled in %s", cfg.SourcePath)
				}
				apiURL = apiBaseURL(cfg.API.Listen)
			}
			if apiKey == "" {
				return fmt.Errorf("API token required: use --api-key or SLACKAGENT_API_KEY")
			}

			m := watch.New(watch.Client{BaseURL: apiURL, Token: apiKey, Channel: channel})
			if _, err := tea.NewProgram(m).Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Admin API URL (default: derived from api.listen)")
	cmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("SLACKAGENT_API_KEY"), "API bearer token")
	cmd.Flags().StringVar(&channel, "channel", "", "Only follow one Slack channel ID")
	return cmd
}
