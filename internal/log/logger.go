package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Setup initializes the global logger.
// Unknown levels fall back to INFO; format "text" selects the text handler, anything else JSON.
func Setup(level, format string) {
	once.Do(func() {
		logger = newLogger(os.Stdout, level, format)
		slog.SetDefault(logger)
	})
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level), ReplaceAttr: redact}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

const redacted = "[redacted]"

// secretKeys are attribute keys whose values never reach the log.
var secretKeys = map[string]bool{
	"authorization":  true,
	"api_key":        true,
	"bot_token":      true,
	"signing_secret": true,
	"token":          true,
}

// slackTokenPrefixes mark Slack credentials wherever they appear as values.
var slackTokenPrefixes = []string{"xoxb-", "xoxp-", "xoxa-", "xapp-"}

func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindString {
		v := a.Value.String()
		for _, p := range slackTokenPrefixes {
			if strings.HasPrefix(v, p) {
				return slog.String(a.Key, redacted)
			}
		}
	}
	return a
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the configured logger, or a default one if Setup hasn't been called.
func Get() *slog.Logger {
	if logger == nil {
		Setup("INFO", "json")
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithChannel returns a logger with the channel field set.
func WithChannel(id string) *slog.Logger {
	return Get().With(slog.String("channel", id))
}

// WithTask returns a logger scoped to one task execution.
func WithTask(channelID, taskID string) *slog.Logger {
	return Get().With(slog.String("channel", channelID), slog.String("task_id", taskID))
}
