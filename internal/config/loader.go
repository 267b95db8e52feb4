package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ConfigFileName is the service config file looked up inside a config directory.
const ConfigFileName = "config.yaml"

// Load reads and parses the service configuration from a file or directory.
// Relative channels_dir and profiles_dir are resolved against the config file's directory.
func Load(configPath string) (*Config, error) {
	cfg, err := LoadUnverified(configPath)
	if err != nil {
		return nil, err
	}

	// Hash-verify the service file and channel files when a manifest is present.
	if err := verifyConfigHashes(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnverified is Load without the checksum manifest check. "config lock"
// uses it to re-authorize files that were edited on purpose.
func LoadUnverified(configPath string) (*Config, error) {
	absPath, err := resolveConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}
	cfg.SourcePath = absPath

	cfg = applyConfigDefaults(cfg)
	resolveRelativeDirs(cfg, filepath.Dir(absPath))

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveConfigFile(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, ConfigFileName)
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but %s not found: %s", ConfigFileName, absPath)
		}
	}
	return absPath, nil
}

// DiscoverConfigDir finds the config directory by checking standard locations.
// Priority order: $SLACKAGENT_CONFIG_DIR, ~/.config/slackagent, /etc/slackagent, ./config.yaml
func DiscoverConfigDir() (string, error) {
	if dir := os.Getenv("SLACKAGENT_CONFIG_DIR"); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "slackagent")
		if _, err := os.Stat(userConfigDir); err == nil {
			return userConfigDir, nil
		}
	}

	systemConfigDir := "/etc/slackagent"
	if _, err := os.Stat(systemConfigDir); err == nil {
		return systemConfigDir, nil
	}

	if _, err := os.Stat("./" + ConfigFileName); err == nil {
		return "./" + ConfigFileName, nil
	}

	return "", fmt.Errorf("no config found (checked: $SLACKAGENT_CONFIG_DIR, ~/.config/slackagent, /etc/slackagent, ./config.yaml)")
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaults.State.Path
	}
	if cfg.ChannelsDir == "" {
		cfg.ChannelsDir = defaults.ChannelsDir
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir = defaults.ProfilesDir
	}
	if cfg.Slack.Listen == "" {
		cfg.Slack.Listen = defaults.Slack.Listen
	}
	if cfg.Slack.APIURL == "" {
		cfg.Slack.APIURL = defaults.Slack.APIURL
	}
	if cfg.Claude.Path == "" {
		cfg.Claude.Path = defaults.Claude.Path
	}
	if cfg.Claude.Models == nil {
		cfg.Claude.Models = make(map[string]string)
	}
	for short, id := range defaults.Claude.Models {
		if cfg.Claude.Models[short] == "" {
			cfg.Claude.Models[short] = id
		}
	}

	if cfg.Timeouts.Setup == 0 {
		cfg.Timeouts.Setup = defaults.Timeouts.Setup
	}
	if cfg.Timeouts.Generation == 0 {
		cfg.Timeouts.Generation = defaults.Timeouts.Generation
	}
	if cfg.Timeouts.Tests == 0 {
		cfg.Timeouts.Tests = defaults.Timeouts.Tests
	}
	if cfg.Timeouts.Git == 0 {
		cfg.Timeouts.Git = defaults.Timeouts.Git
	}
	if cfg.Timeouts.PR == 0 {
		cfg.Timeouts.PR = defaults.Timeouts.PR
	}

	if cfg.Dispatch.MaxWorkers == 0 {
		cfg.Dispatch.MaxWorkers = defaults.Dispatch.MaxWorkers
	}
	if cfg.Budget.MonthlyUSD == 0 {
		cfg.Budget.MonthlyUSD = defaults.Budget.MonthlyUSD
	}
	if cfg.Budget.WarnPercent == 0 {
		cfg.Budget.WarnPercent = defaults.Budget.WarnPercent
	}

	if !cfg.API.Enabled && cfg.API.Listen == "" {
		cfg.API = defaults.API
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Maintenance.HistoryRetention == 0 {
		cfg.Maintenance.HistoryRetention = defaults.Maintenance.HistoryRetention
	}
	if cfg.Maintenance.PruneSchedule == "" {
		cfg.Maintenance.PruneSchedule = defaults.Maintenance.PruneSchedule
	}

	return cfg
}

func resolveRelativeDirs(cfg *Config, baseDir string) {
	if !filepath.IsAbs(cfg.ChannelsDir) {
		cfg.ChannelsDir = filepath.Join(baseDir, cfg.ChannelsDir)
	}
	if cfg.ProfilesDir != "" && !filepath.IsAbs(cfg.ProfilesDir) {
		cfg.ProfilesDir = filepath.Join(baseDir, cfg.ProfilesDir)
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	if cfg.ChannelsDir == "" {
		return fmt.Errorf("channels_dir is required")
	}

	if err := checkUnresolved("slack.bot_token", cfg.Slack.BotToken); err != nil {
		return err
	}
	if err := checkUnresolved("slack.signing_secret", cfg.Slack.SigningSecret); err != nil {
		return err
	}

	if cfg.Timeouts.Generation <= cfg.Timeouts.Setup {
		return fmt.Errorf("timeouts.generation (%s) must be longer than timeouts.setup (%s)",
			cfg.Timeouts.Generation, cfg.Timeouts.Setup)
	}
	for name, d := range map[string]time.Duration{
		"timeouts.setup": cfg.Timeouts.Setup,
		"timeouts.tests": cfg.Timeouts.Tests,
		"timeouts.git":   cfg.Timeouts.Git,
		"timeouts.pr":    cfg.Timeouts.PR,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive (got %s)", name, d)
		}
	}

	if cfg.Dispatch.MaxWorkers < 1 {
		return fmt.Errorf("dispatch.max_workers must be at least 1")
	}
	if cfg.Budget.MonthlyUSD < 0 {
		return fmt.Errorf("budget.monthly_usd must not be negative")
	}
	if cfg.Budget.WarnPercent <= 0 || cfg.Budget.WarnPercent > 100 {
		return fmt.Errorf("budget.warn_percent must be in (0, 100] (got %v)", cfg.Budget.WarnPercent)
	}

	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			return fmt.Errorf("api.listen is required when the API is enabled")
		}
		if err := checkUnresolved("api.auth.api_key", cfg.API.Auth.APIKey); err != nil {
			return err
		}
		for i, tok := range cfg.API.Auth.Tokens {
			if tok.Token == "" {
				return fmt.Errorf("api.auth.tokens[%d].token is required", i)
			}
			if err := checkUnresolved(fmt.Sprintf("api.auth.tokens[%d].token", i), tok.Token); err != nil {
				return err
			}
			if len(tok.Scopes) == 0 {
				return fmt.Errorf("api.auth.tokens[%d].scopes must be non-empty", i)
			}
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.Maintenance.PruneSchedule); err != nil {
		return fmt.Errorf("maintenance.prune_schedule: %w", err)
	}
	if cfg.Maintenance.BudgetReportSchedule != "" {
		if _, err := parser.Parse(cfg.Maintenance.BudgetReportSchedule); err != nil {
			return fmt.Errorf("maintenance.budget_report_schedule: %w", err)
		}
	}

	return nil
}

// checkUnresolved rejects values that still carry a ${VAR} placeholder (security: no secrets leaked in logs).
func checkUnresolved(field, value string) error {
	if !envVarPattern.MatchString(value) {
		return nil
	}
	matches := envVarPattern.FindStringSubmatch(value)
	if len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return fmt.Errorf("%s: unresolved environment variable", field)
}
