package config

import "time"

// Config represents the complete slackagent service configuration.
type Config struct {
	Service     ServiceConfig     `yaml:"service"`
	State       StateConfig       `yaml:"state"`
	ChannelsDir string            `yaml:"channels_dir"`
	ProfilesDir string            `yaml:"profiles_dir,omitempty"`
	Slack       SlackConfig       `yaml:"slack"`
	Claude      ClaudeConfig      `yaml:"claude"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Budget      BudgetConfig      `yaml:"budget"`
	API         APIConfig         `yaml:"api,omitempty"`
	Maintenance MaintenanceConfig `yaml:"maintenance,omitempty"`

	// SourcePath is the absolute path of the file Load read. Not serialized.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// StateConfig defines where task history and cost entries are stored.
type StateConfig struct {
	Path string `yaml:"path"`
}

// SlackConfig holds credentials for posting to and receiving from Slack.
type SlackConfig struct {
	BotToken      string `yaml:"bot_token"`
	SigningSecret string `yaml:"signing_secret"`
	APIURL        string `yaml:"api_url,omitempty"`
	// Listen is the address of the inbound slash-command and events endpoints.
	Listen string `yaml:"listen"`
	// MaxBodySize caps inbound request bodies, e.g. "64KB" (default 1MB).
	MaxBodySize string `yaml:"max_body_size,omitempty"`
	// OpsChannel receives maintenance reports such as budget warnings.
	OpsChannel string `yaml:"ops_channel,omitempty"`
}

// ClaudeConfig configures the code-generation binary.
type ClaudeConfig struct {
	Path string `yaml:"path"`
	// Models maps short names (opus, sonnet, haiku) to full model identifiers.
	Models map[string]string `yaml:"models,omitempty"`
}

// TimeoutsConfig bounds every external process the pipeline starts.
type TimeoutsConfig struct {
	Setup      time.Duration `yaml:"setup"`
	Generation time.Duration `yaml:"generation"`
	Tests      time.Duration `yaml:"tests"`
	Git        time.Duration `yaml:"git"`
	PR         time.Duration `yaml:"pr"`
}

// DispatchConfig sizes the worker pool that executes started tasks.
type DispatchConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// BudgetConfig defines monthly spend limits.
type BudgetConfig struct {
	MonthlyUSD  float64 `yaml:"monthly_usd"`
	WarnPercent float64 `yaml:"warn_percent"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings for the admin endpoints.
// Slack endpoints are authenticated with the Slack signing secret instead.
type APIAuthConfig struct {
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// MaintenanceConfig schedules housekeeping jobs (cron syntax).
type MaintenanceConfig struct {
	HistoryRetention     time.Duration `yaml:"history_retention"`
	PruneSchedule        string        `yaml:"prune_schedule"`
	BudgetReportSchedule string        `yaml:"budget_report_schedule,omitempty"`
}

// Default model identifiers passed to the code-generation binary.
var DefaultModels = map[string]string{
	"opus":   "claude-3-opus-20240229",
	"sonnet": "claude-3-5-sonnet-20241022",
	"haiku":  "claude-3-haiku-20240307",
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	models := make(map[string]string, len(DefaultModels))
	for k, v := range DefaultModels {
		models[k] = v
	}
	return &Config{
		Service: ServiceConfig{
			Name:      "slackagent",
			LogLevel:  "info",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./data/state.db",
		},
		ChannelsDir: "./channels",
		ProfilesDir: "./profiles",
		Slack: SlackConfig{
			APIURL: "https://slack.com/api",
			Listen: "127.0.0.1:3000",
		},
		Claude: ClaudeConfig{
			Path:   "claude",
			Models: models,
		},
		Timeouts: TimeoutsConfig{
			Setup:      5 * time.Minute,
			Generation: 30 * time.Minute,
			Tests:      5 * time.Minute,
			Git:        60 * time.Second,
			PR:         60 * time.Second,
		},
		Dispatch: DispatchConfig{
			MaxWorkers: 8,
		},
		Budget: BudgetConfig{
			MonthlyUSD:  500,
			WarnPercent: 80,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8080",
		},
		Maintenance: MaintenanceConfig{
			HistoryRetention: 30 * 24 * time.Hour,
			PruneSchedule:    "@daily",
		},
	}
}

// ModelID resolves a short model name to its full identifier.
// Unknown names resolve to the sonnet identifier.
func (c *Config) ModelID(short string) string {
	if id, ok := c.Claude.Models[short]; ok && id != "" {
		return id
	}
	if id, ok := DefaultModels[short]; ok {
		return id
	}
	if id, ok := c.Claude.Models["sonnet"]; ok && id != "" {
		return id
	}
	return DefaultModels["sonnet"]
}
