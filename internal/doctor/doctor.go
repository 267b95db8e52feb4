// Package doctor validates slackagent configuration and the host it runs on.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/mattjoyce/slackagent/internal/config"
	"github.com/mattjoyce/slackagent/internal/gitops"
	"github.com/mattjoyce/slackagent/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Channels int     `json:"channels"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// ProfileLister enumerates the agent profiles on disk.
type ProfileLister interface {
	List() ([]string, error)
}

// knownScopes are the scopes the admin API checks.
var knownScopes = []string{"*", "tasks:ro", "tasks:rw", "history:ro", "history:rw", "events:ro", "events:rw", "metrics:ro"}

// Doctor validates the service config, the channel files and the tools the
// pipeline shells out to.
type Doctor struct {
	cfg      *config.Config
	profiles ProfileLister
	lookPath  func(string) (string, error)
	isRepo    func(string) bool
	checkDisk func(string) error
}

// New creates a Doctor from a loaded config. profiles may be nil.
func New(cfg *config.Config, profiles ProfileLister) *Doctor {
	return &Doctor{
		cfg:       cfg,
		profiles:  profiles,
		lookPath:  exec.LookPath,
		isRepo:    gitops.IsRepo,
		checkDisk: storage.CheckLocalDisk,
	}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateServiceConfig(r)
	d.validateSlack(r)
	d.validateBinaries(r)
	d.validateChannels(r)
	d.validateAPIConfig(r)
	d.validateTokenScopes(r)
	d.warnDeprecatedSyntax(r)
	d.warnBudget(r)
	d.warnTimeouts(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateServiceConfig checks required service fields.
func (d *Doctor) validateServiceConfig(r *Result) {
	switch err := d.stateDiskError(); {
	case d.cfg.State.Path == "":
		d.addError(r, "service", "state.path", "state.path is required")
	case err != nil:
		var remote *storage.RemoteMountError
		if errors.As(err, &remote) {
			d.addError(r, "service", "state.path", err.Error())
		} else {
			d.addWarning(r, "service", "state.path", fmt.Sprintf("cannot inspect filesystem: %v", err))
		}
	}
	if d.cfg.ChannelsDir == "" {
		d.addError(r, "service", "channels_dir", "channels_dir is required")
		return
	}
	if info, err := os.Stat(d.cfg.ChannelsDir); err != nil || !info.IsDir() {
		d.addError(r, "service", "channels_dir",
			fmt.Sprintf("channels_dir %q is not a directory", d.cfg.ChannelsDir))
	}
}

func (d *Doctor) stateDiskError() error {
	if d.cfg.State.Path == "" || d.cfg.State.Path == ":memory:" {
		return nil
	}
	return d.checkDisk(d.cfg.State.Path)
}

// validateSlack checks the credentials needed to receive commands and post replies.
func (d *Doctor) validateSlack(r *Result) {
	if d.cfg.Slack.BotToken == "" {
		d.addError(r, "slack", "slack.bot_token", "bot_token is required to post to Slack")
	} else if !strings.HasPrefix(d.cfg.Slack.BotToken, "xoxb-") {
		d.addWarning(r, "slack", "slack.bot_token", "bot_token does not look like a bot token (xoxb-...)")
	}
	if d.cfg.Slack.SigningSecret == "" {
		d.addError(r, "slack", "slack.signing_secret", "signing_secret is required to verify slash commands")
	}
	if d.cfg.Slack.Listen == "" {
		d.addError(r, "slack", "slack.listen", "listen address is required")
	}
}

// validateBinaries checks that the pipeline's external tools resolve on PATH.
func (d *Doctor) validateBinaries(r *Result) {
	if _, err := d.lookPath(d.cfg.Claude.Path); err != nil {
		d.addError(r, "binaries", "claude.path",
			fmt.Sprintf("code generation binary %q not found", d.cfg.Claude.Path))
	}
	if _, err := d.lookPath("git"); err != nil {
		d.addError(r, "binaries", "", "git not found on PATH")
	}
	if _, err := d.lookPath("gh"); err != nil {
		d.addWarning(r, "binaries", "", "gh not found on PATH; tasks will complete without a PR")
	}
}

// validateChannels loads every channel file and checks its checkout and references.
func (d *Doctor) validateChannels(r *Result) {
	if d.cfg.ChannelsDir == "" {
		return
	}
	channels, errs := config.LoadChannels(d.cfg.ChannelsDir)
	for _, err := range errs {
		d.addError(r, "channels", "", err.Error())
	}
	r.Channels = len(channels)
	if len(channels) == 0 && len(errs) == 0 {
		d.addWarning(r, "channels", "channels_dir",
			fmt.Sprintf("no channel files in %s; every channel will answer \"not configured\"", d.cfg.ChannelsDir))
		return
	}

	var profiles []string
	if d.profiles != nil {
		var err error
		if profiles, err = d.profiles.List(); err != nil {
			d.addWarning(r, "profiles", "profiles_dir", fmt.Sprintf("cannot list profiles: %v", err))
		}
	}

	ids := make([]string, 0, len(channels))
	for id := range channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ch := channels[id]
		field := "channels." + id
		switch info, err := os.Stat(ch.ClonePath); {
		case err != nil && ch.Repo != "":
			d.addWarning(r, "channels", field+".clone_path",
				fmt.Sprintf("%s does not exist yet; clone %s before submitting tasks", ch.ClonePath, ch.Repo))
		case err != nil:
			d.addError(r, "channels", field+".clone_path", fmt.Sprintf("%s does not exist", ch.ClonePath))
		case !info.IsDir() || !d.isRepo(ch.ClonePath):
			d.addError(r, "channels", field+".clone_path", fmt.Sprintf("%s is not a git checkout", ch.ClonePath))
		}

		if ch.Profile != "" && d.profiles != nil && !slices.Contains(profiles, ch.Profile) {
			d.addWarning(r, "profiles", field+".profile",
				fmt.Sprintf("profile %q not found; the default profile will be used", ch.Profile))
		}
		if _, ok := d.cfg.Claude.Models[ch.DefaultModel]; !ok {
			d.addWarning(r, "channels", field+".default_model",
				fmt.Sprintf("model %q is not in claude.models; sonnet will be used", ch.DefaultModel))
		}
	}
}

// validateAPIConfig checks API server settings.
func (d *Doctor) validateAPIConfig(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when API is enabled")
	}
	if d.cfg.API.Auth.APIKey == "" && len(d.cfg.API.Auth.Tokens) == 0 {
		d.addWarning(r, "api", "api.auth", "API enabled but no authentication configured")
	}
	if d.cfg.API.Listen != "" && d.cfg.API.Listen == d.cfg.Slack.Listen {
		d.addError(r, "api", "api.listen", "api.listen must differ from slack.listen")
	}
}

// validateTokenScopes checks that every scope is one the API understands.
func (d *Doctor) validateTokenScopes(r *Result) {
	for i, token := range d.cfg.API.Auth.Tokens {
		for j, scope := range token.Scopes {
			if !slices.Contains(knownScopes, strings.TrimSpace(scope)) {
				d.addError(r, "token_scopes", fmt.Sprintf("api.auth.tokens[%d].scopes[%d]", i, j),
					fmt.Sprintf("unknown scope %q (expected one of %s)", scope, strings.Join(knownScopes, ", ")))
			}
		}
	}
}

// warnDeprecatedSyntax warns about legacy config patterns.
func (d *Doctor) warnDeprecatedSyntax(r *Result) {
	if d.cfg.API.Auth.APIKey != "" && len(d.cfg.API.Auth.Tokens) > 0 {
		d.addWarning(r, "deprecated", "api.auth",
			"both api_key and tokens configured; prefer tokens array only")
	}
	if d.cfg.API.Auth.APIKey != "" && len(d.cfg.API.Auth.Tokens) == 0 {
		d.addWarning(r, "deprecated", "api.auth.api_key",
			"legacy api_key grants full access; migrate to tokens array with scopes")
	}
}

// warnBudget flags budget settings that silently disable a guard or report.
func (d *Doctor) warnBudget(r *Result) {
	if d.cfg.Budget.MonthlyUSD == 0 {
		d.addWarning(r, "budget", "budget.monthly_usd", "monthly budget is 0; the spend guard is disabled")
	}
	m := d.cfg.Maintenance
	if m.BudgetReportSchedule != "" && d.cfg.Slack.OpsChannel == "" {
		d.addWarning(r, "budget", "slack.ops_channel", "budget_report_schedule is set but no ops_channel receives it")
	}
}

// warnTimeouts flags timeouts too short for real work.
func (d *Doctor) warnTimeouts(r *Result) {
	if g := d.cfg.Timeouts.Generation; g > 0 && g < time.Minute {
		d.addWarning(r, "timeouts", "timeouts.generation",
			fmt.Sprintf("generation timeout %s is very short (< 1m)", g))
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		fmt.Fprintf(&b, "Configuration valid (%d channel(s)).\n", r.Channels)
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "Configuration valid (%d channel(s), %d warning(s))\n", r.Channels, len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
