package main

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/slackagent/internal/config"
	"github.com/mattjoyce/slackagent/internal/doctor"
	"github.com/mattjoyce/slackagent/internal/profile"
	"github.com/mattjoyce/slackagent/internal/tui/tokenmgr"
)

// loadConfigUnverified is loadConfig without the checksum check.
func loadConfigUnverified(path string) (*config.Config, error) {
	if path == "" {
		discovered, err := config.DiscoverConfigDir()
		if err != nil {
			return nil, fmt.Errorf("discover config: %w", err)
		}
		path = discovered
	}
	cfg, err := config.LoadUnverified(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newConfigCheckCmd(configPath *string) *cobra.Command {
	var strict, jsonOut bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration, channel files, binaries and integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigUnverified(*configPath)
			if err != nil {
				return err
			}
			result, err := checkConfig(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				rendered, err := doctor.FormatJSON(result)
				if err != nil {
					return fmt.Errorf("JSON format error: %w", err)
				}
				fmt.Fprintln(out, rendered)
			} else {
				fmt.Fprint(out, doctor.FormatHuman(result))
			}

			if !result.Valid {
				return exitError{code: 1}
			}
			if strict && len(result.Warnings) > 0 {
				return exitError{code: 2}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON")
	return cmd
}

// checkConfig runs the doctor and folds the integrity check into its result.
func checkConfig(cfg *config.Config) (*doctor.Result, error) {
	profiles, err := profile.NewStore(cfg.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("open profiles: %w", err)
	}
	result := doctor.New(cfg, profiles).Validate()

	integrity, err := config.VerifyIntegrity(cfg)
	if err != nil {
		return nil, fmt.Errorf("verify integrity: %w", err)
	}
	for _, msg := range integrity.Errors {
		result.Errors = append(result.Errors, doctor.Issue{Category: "integrity", Message: msg})
	}
	for _, msg := range integrity.Warnings {
		result.Warnings = append(result.Warnings, doctor.Issue{Category: "integrity", Message: msg})
	}
	if len(result.Errors) > 0 {
		result.Valid = false
	}
	return result, nil
}

func newConfigLockCmd(configPath *string) *cobra.Command {
	var verbose, dryRun bool
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Authorize the current config by regenerating integrity hashes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigUnverified(*configPath)
			if err != nil {
				return err
			}
			report, err := config.Lock(cfg, dryRun)
			if err != nil {
				return fmt.Errorf("lock config: %w", err)
			}
			printLockReport(cmd.OutOrStdout(), report, verbose)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every hashed file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute hashes without writing the manifest")
	return cmd
}

func printLockReport(w io.Writer, report *config.LockReport, verbose bool) {
	if verbose {
		fmt.Fprintf(w, "Processing directory: %s\n", report.ConfigDir)
		for _, f := range report.Files {
			fmt.Fprintf(w, "  HASH %s %s\n", f.Hash[:16], f.Path)
		}
	}
	if report.Written {
		fmt.Fprintf(w, "Locked %d file(s) in %s\n", len(report.Files), report.ChecksumPath)
	} else {
		fmt.Fprintf(w, "Dry run: %d file(s) would be locked in %s\n", len(report.Files), report.ChecksumPath)
	}
}

func newConfigTokenCmd() *cobra.Command {
	var scopes string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate an admin API token and its config snippet",
		Long: "Generates a random bearer token. Scopes come from --scopes or an interactive picker.\n" +
			"Paste the printed YAML under api.auth.tokens and run 'slackagent config lock'.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected := splitScopes(scopes)
			if len(selected) == 0 {
				picked, ok, err := pickScopes()
				if err != nil {
					return err
				}
				if !ok {
					return exitError{code: 1}
				}
				selected = picked
			}

			token, err := tokenmgr.GenerateToken()
			if err != nil {
				return err
			}
			snippet, err := tokenmgr.Snippet(token, selected)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), snippet)
			return nil
		},
	}
	cmd.Flags().StringVar(&scopes, "scopes", "", "Comma-separated scopes (skips the picker)")
	return cmd
}

func pickScopes() ([]string, bool, error) {
	final, err := tea.NewProgram(tokenmgr.New()).Run()
	if err != nil {
		return nil, false, fmt.Errorf("scope picker: %w", err)
	}
	var m tokenmgr.Model
	switch v := final.(type) {
	case tokenmgr.Model:
		m = v
	case *tokenmgr.Model:
		m = *v
	default:
		return nil, false, nil
	}
	scopes, confirmed := m.Result()
	return scopes, confirmed && len(scopes) > 0, nil
}

func splitScopes(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
