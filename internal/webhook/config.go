package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattjoyce/slackagent/internal/config"
)

// FromSlackConfig converts the slack section of the service config.
func FromSlackConfig(sc config.SlackConfig) (Config, error) {
	if sc.SigningSecret == "" {
		return Config{}, fmt.Errorf("slack.signing_secret is required for inbound requests")
	}
	maxBodySize, err := parseMaxBodySize(sc.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("slack.max_body_size %q: %w", sc.MaxBodySize, err)
	}
	return Config{
		Listen:        sc.Listen,
		SigningSecret: sc.SigningSecret,
		MaxBodySize:   maxBodySize,
	}, nil
}

// parseMaxBodySize parses size strings like "1MB", "64KB", "1048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{{"KB", 1024}, {"MB", 1024 * 1024}, {"GB", 1024 * 1024 * 1024}} {
		if trimmed, ok := strings.CutSuffix(upper, unit.suffix); ok {
			upper, multiplier = trimmed, unit.mult
			break
		}
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}
