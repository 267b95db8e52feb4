package webhook

import (
	"context"

	"github.com/mattjoyce/slackagent/internal/command"
)

// CommandHandler executes a verified slash command.
type CommandHandler interface {
	Handle(ctx context.Context, req command.Request) command.Response
}

// Notifier posts the replies to @mentions.
type Notifier interface {
	PostNew(ctx context.Context, channel, text string) (string, error)
	PostToThread(ctx context.Context, channel, thread, text string) (string, error)
}

// Config holds the Slack inbound server configuration.
type Config struct {
	Listen        string
	SigningSecret string
	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64
}

// ErrorResponse is the JSON response for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// eventEnvelope is the outer Events API payload.
type eventEnvelope struct {
	Type      string      `json:"type"`
	Challenge string      `json:"challenge,omitempty"`
	Event     *slackEvent `json:"event,omitempty"`
}

type slackEvent struct {
	Type       string         `json:"type"`
	Subtype    string         `json:"subtype,omitempty"`
	Channel    string         `json:"channel"`
	User       string         `json:"user,omitempty"`
	Text       string         `json:"text,omitempty"`
	ThreadTS   string         `json:"thread_ts,omitempty"`
	BotID      string         `json:"bot_id,omitempty"`
	BotProfile map[string]any `json:"bot_profile,omitempty"`
}

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB

	// Slack request headers.
	HeaderSignature = "X-Slack-Signature"
	HeaderTimestamp = "X-Slack-Request-Timestamp"
	HeaderRetryNum  = "X-Slack-Retry-Num"
)
