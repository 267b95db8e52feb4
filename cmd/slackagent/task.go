package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/slackagent/internal/config"
	"github.com/mattjoyce/slackagent/internal/history"
	"github.com/mattjoyce/slackagent/internal/storage"
)

// openState opens the state database named by the config.
func openState(ctx context.Context, configPath string) (*config.Config, *sql.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open state: %w", err)
	}
	return cfg, db, nil
}

func newTaskHistoryCmd(configPath *string) *cobra.Command {
	var (
		channel string
		status  string
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openState(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := history.New(db).List(cmd.Context(), history.Filter{
				ChannelID: channel,
				Status:    history.Status(status),
				Limit:     limit,
			})
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, records)
			}
			printHistory(out, records)
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Only tasks from this Slack channel ID")
	cmd.Flags().StringVar(&status, "status", "", "Only tasks in this status (running, completed, failed, ...)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON")
	return cmd
}

func newTaskShowCmd(configPath *string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openState(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := history.New(db).Get(cmd.Context(), args[0])
			if errors.Is(err, history.ErrTaskNotFound) {
				return fmt.Errorf("task %s not found", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, rec)
			}
			printRecord(out, rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON")
	return cmd
}

func printHistory(w io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No tasks recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHANNEL\tSTATUS\tMODEL\tCOST\tCREATED\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t$%.2f\t%s\t%s\n",
			r.ID, r.ChannelID, r.Status, r.Model, r.CostUSD,
			r.CreatedAt.Local().Format("2006-01-02 15:04"), clip(r.Description, 50))
	}
	_ = tw.Flush()
}

func printRecord(w io.Writer, r *history.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("ID", r.ID)
	row("Channel", r.ChannelID)
	row("Status", string(r.Status))
	row("Model", r.Model)
	row("Requester", r.Requester)
	row("Description", r.Description)
	row("Branch", r.Branch)
	row("PR", r.PRURL)
	row("Changes", r.DiffStats)
	row("Cost", fmt.Sprintf("$%.4f", r.CostUSD))
	row("Created", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if r.CompletedAt != nil {
		row("Completed", r.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	row("Error", r.LastError)
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
