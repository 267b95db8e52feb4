package scheduler

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_scheduler.go -package=mocks github.com/mattjoyce/slackagent/internal/scheduler HistoryStore,BudgetSource,Poster

// HistoryStore is the slice of the task log the scheduler maintains.
type HistoryStore interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	MarkAbandoned(ctx context.Context) (int64, error)
}

// BudgetSource reports monthly spend.
type BudgetSource interface {
	OverWarnThreshold(ctx context.Context) (bool, error)
	FormatBudgetStatus(ctx context.Context) (string, error)
}

// Poster posts a top-level message to a Slack channel.
type Poster interface {
	PostNew(ctx context.Context, channel, text string) (string, error)
}
