package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPolicy is returned when a channel declares a policy outside the enumerated set.
var ErrInvalidPolicy = errors.New("invalid policy")

// ConcurrencyPolicy governs what happens when a task arrives while another is running.
type ConcurrencyPolicy string

const (
	ConcurrencyAsk      ConcurrencyPolicy = "ask"
	ConcurrencyQueue    ConcurrencyPolicy = "queue"
	ConcurrencyParallel ConcurrencyPolicy = "parallel"
	ConcurrencyReject   ConcurrencyPolicy = "reject"
)

// FailurePolicy is surfaced to the human when a task fails.
type FailurePolicy string

const (
	FailureAsk     FailurePolicy = "ask"
	FailureStop    FailurePolicy = "stop"
	FailureRetry   FailurePolicy = "retry"
	FailureDraftPR FailurePolicy = "draft_pr"
)

// ParseConcurrencyPolicy validates s. Empty input yields the default (ask).
func ParseConcurrencyPolicy(s string) (ConcurrencyPolicy, error) {
	switch p := ConcurrencyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ConcurrencyAsk, nil
	case ConcurrencyAsk, ConcurrencyQueue, ConcurrencyParallel, ConcurrencyReject:
		return p, nil
	default:
		return "", fmt.Errorf("%w: on_concurrent must be one of ask, queue, parallel, reject (got %q)", ErrInvalidPolicy, s)
	}
}

// ParseFailurePolicy validates s. Empty input yields the default (ask).
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailureAsk, nil
	case FailureAsk, FailureStop, FailureRetry, FailureDraftPR:
		return p, nil
	default:
		return "", fmt.Errorf("%w: on_failure must be one of ask, stop, retry, draft_pr (got %q)", ErrInvalidPolicy, s)
	}
}

// ChannelConfig binds one chat channel to a repository checkout.
type ChannelConfig struct {
	ChannelID     string            `yaml:"channel_id"`
	ChannelName   string            `yaml:"channel_name"`
	Repo          string            `yaml:"repo,omitempty"`
	ClonePath     string            `yaml:"clone_path"`
	PRTarget      string            `yaml:"pr_target"`
	BranchPrefix  string            `yaml:"branch_prefix"`
	DefaultModel  string            `yaml:"default_model"`
	OnFailure     FailurePolicy     `yaml:"on_failure"`
	OnConcurrent  ConcurrencyPolicy `yaml:"on_concurrent"`
	SetupCommands []string          `yaml:"setup_commands,omitempty"`
	TestCommand   string            `yaml:"test_command"`
	Profile       string            `yaml:"profile,omitempty"`
}

const (
	DefaultPRTarget     = "main"
	DefaultBranchPrefix = "agent"
	DefaultModel        = "sonnet"
	DefaultTestCommand  = "make test"
)

// Normalize fills defaults and rejects invalid values.
func (c *ChannelConfig) Normalize() error {
	c.ChannelID = strings.TrimSpace(c.ChannelID)
	if c.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if strings.TrimSpace(c.ClonePath) == "" {
		return fmt.Errorf("channel %q: clone_path is required", c.ChannelID)
	}
	if c.ChannelName == "" {
		c.ChannelName = c.ChannelID
	}
	if c.PRTarget == "" {
		c.PRTarget = DefaultPRTarget
	}
	if c.BranchPrefix == "" {
		c.BranchPrefix = DefaultBranchPrefix
	}
	if c.DefaultModel == "" {
		c.DefaultModel = DefaultModel
	}
	c.DefaultModel = strings.ToLower(c.DefaultModel)
	if c.TestCommand == "" {
		c.TestCommand = DefaultTestCommand
	}

	onConcurrent, err := ParseConcurrencyPolicy(string(c.OnConcurrent))
	if err != nil {
		return fmt.Errorf("channel %q: %w", c.ChannelID, err)
	}
	c.OnConcurrent = onConcurrent

	onFailure, err := ParseFailurePolicy(string(c.OnFailure))
	if err != nil {
		return fmt.Errorf("channel %q: %w", c.ChannelID, err)
	}
	c.OnFailure = onFailure
	return nil
}
