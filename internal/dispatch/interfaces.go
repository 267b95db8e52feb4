package dispatch

import (
	"context"
	"time"

	"github.com/mattjoyce/slackagent/internal/config"
	"github.com/mattjoyce/slackagent/internal/cost"
	"github.com/mattjoyce/slackagent/internal/events"
	"github.com/mattjoyce/slackagent/internal/history"
	"github.com/mattjoyce/slackagent/internal/profile"
	"github.com/mattjoyce/slackagent/internal/runner"
)

//go:generate mockgen -destination=mocks/mock_dispatch.go -package=mocks github.com/mattjoyce/slackagent/internal/dispatch ChannelLookup,RepoOperator,CodeGenerator,Notifier,CostRecorder

// ChannelLookup resolves the current configuration of a channel.
type ChannelLookup interface {
	Get(channelID string) (config.ChannelConfig, bool)
}

// RepoOperator performs the git and PR steps of the pipeline. Boolean results
// report success; failures are logged by the implementation.
type RepoOperator interface {
	CreateBranch(ctx context.Context, path, name, base string) bool
	RunCommand(ctx context.Context, path, command string, timeout time.Duration) bool
	DiffStats(ctx context.Context, path, base string) string
	RunTests(ctx context.Context, path, command string) string
	CommitAll(ctx context.Context, path, message string) bool
	Push(ctx context.Context, path, branch string) bool
	CreatePR(ctx context.Context, path, title, body, target string) (string, bool)
}

// CodeGenerator runs the code-generation CLI for one task.
type CodeGenerator interface {
	Run(ctx context.Context, req runner.Request) (runner.Result, error)
}

// Notifier posts to chat. PostNew returns the handle of the new thread.
type Notifier interface {
	PostNew(ctx context.Context, channel, text string) (string, error)
	PostToThread(ctx context.Context, channel, thread, text string) (string, error)
}

// CostRecorder persists estimated spend and reports budget usage.
type CostRecorder interface {
	Record(ctx context.Context, channelID, taskID, model string, inputTokens, outputTokens int64) (cost.Entry, error)
	FormatSummary(e cost.Entry) string
	BudgetPercent(ctx context.Context) (float64, error)
}

// ProfileSource resolves agent profiles by name.
type ProfileSource interface {
	Load(name string) (profile.Profile, error)
}

// TaskLog persists task lifecycle rows.
type TaskLog interface {
	Create(ctx context.Context, req history.CreateRequest) error
	MarkRunning(ctx context.Context, id, branch, threadTS string) error
	Complete(ctx context.Context, id string, out history.Outcome) error
}

// EventPublisher fans lifecycle events out to live subscribers.
type EventPublisher interface {
	Publish(eventType string, data any) events.Event
}
