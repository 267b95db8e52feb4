// Package command maps Slack slash commands onto dispatcher operations.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattjoyce/slackagent/internal/cost"
	"github.com/mattjoyce/slackagent/internal/dispatch"
	"github.com/mattjoyce/slackagent/internal/log"
)

// Slash commands understood by the router.
const (
	Task   = "/agent-task"
	Cancel = "/agent-cancel"
	Status = "/agent-status"
	Budget = "/agent-budget"
)

// Slack response visibility.
const (
	InChannel = "in_channel"
	Ephemeral = "ephemeral"
)

// MentionHint is the reply to an @mention of the bot.
const MentionHint = "Hi! Use `/agent-task <description>` to submit a task."

// ThreadMentionHint is the reply to an @mention inside a thread.
const ThreadMentionHint = "I received your mention. Use `/agent-task` to submit tasks."

// Dispatcher is the subset of the task dispatcher the router drives.
type Dispatcher interface {
	Submit(ctx context.Context, channelID, rawCommand, requester string) (string, error)
	Cancel(channelID string) bool
	Running(channelID string) []dispatch.Snapshot
	Pending(channelID string) []dispatch.Snapshot
}

// BudgetReporter renders monthly spend.
type BudgetReporter interface {
	FormatBudgetStatus(ctx context.Context) (string, error)
	SpendByChannel(ctx context.Context) ([]cost.ChannelSpend, error)
}

// Request is one parsed slash-command invocation.
type Request struct {
	Command   string
	Text      string
	UserID    string
	ChannelID string
}

// Response is the synchronous slash-command reply.
type Response struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

type Router struct {
	dispatcher Dispatcher
	budget     BudgetReporter
	logger     *slog.Logger
}

func NewRouter(d Dispatcher, b BudgetReporter) *Router {
	return &Router{dispatcher: d, budget: b, logger: log.WithComponent("command")}
}

// Handle executes req and returns the reply to show in Slack.
func (r *Router) Handle(ctx context.Context, req Request) Response {
	r.logger.Debug("slash command", "command", req.Command, "channel", req.ChannelID, "user", req.UserID)

	switch strings.ToLower(strings.TrimSpace(req.Command)) {
	case Task:
		return r.submit(ctx, req)
	case Cancel:
		if r.dispatcher.Cancel(req.ChannelID) {
			return Response{ResponseType: InChannel, Text: "Cancelling the running task."}
		}
		return Response{ResponseType: Ephemeral, Text: "Nothing to cancel."}
	case Status:
		return Response{ResponseType: Ephemeral, Text: r.status(req.ChannelID)}
	case Budget:
		return r.budgetStatus(ctx)
	default:
		return Response{ResponseType: Ephemeral, Text: "Unknown command: " + req.Command}
	}
}

func (r *Router) submit(ctx context.Context, req Request) Response {
	reply, err := r.dispatcher.Submit(ctx, req.ChannelID, req.Text, req.UserID)
	if errors.Is(err, dispatch.ErrShuttingDown) {
		return Response{ResponseType: Ephemeral, Text: "The agent is restarting. Try again in a minute."}
	}
	if err != nil {
		r.logger.Error("submit failed", "channel", req.ChannelID, "error", err)
		return Response{ResponseType: Ephemeral, Text: "Could not submit the task: " + err.Error()}
	}
	return Response{ResponseType: InChannel, Text: reply}
}

func (r *Router) status(channelID string) string {
	running := r.dispatcher.Running(channelID)
	pending := r.dispatcher.Pending(channelID)
	if len(running) == 0 && len(pending) == 0 {
		return "No tasks running or queued in this channel."
	}

	var b strings.Builder
	if len(running) > 0 {
		b.WriteString("*Running:*\n")
		for _, s := range running {
			fmt.Fprintf(&b, "• %s\n", s)
		}
	}
	if len(pending) > 0 {
		b.WriteString("*Queued:*\n")
		for i, s := range pending {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Router) budgetStatus(ctx context.Context) Response {
	if r.budget == nil {
		return Response{ResponseType: Ephemeral, Text: "Cost tracking is not enabled."}
	}
	summary, err := r.budget.FormatBudgetStatus(ctx)
	if err != nil {
		r.logger.Error("budget status failed", "error", err)
		return Response{ResponseType: Ephemeral, Text: "Could not read the budget."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Monthly spend:* %s", summary)
	spend, err := r.budget.SpendByChannel(ctx)
	if err != nil {
		r.logger.Warn("per-channel spend failed", "error", err)
	}
	for _, s := range spend {
		fmt.Fprintf(&b, "\n• <#%s>: $%.2f (%d tasks)", s.ChannelID, s.CostUSD, s.Tasks)
	}
	return Response{ResponseType: Ephemeral, Text: b.String()}
}
