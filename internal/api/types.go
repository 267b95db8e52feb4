package api

import (
	"github.com/mattjoyce/slackagent/internal/cost"
	"github.com/mattjoyce/slackagent/internal/dispatch"
	"github.com/mattjoyce/slackagent/internal/history"
)

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Channels      int    `json:"channels"`
	Running       int    `json:"running"`
	Pending       int    `json:"pending"`
	Followers     int    `json:"event_followers"`
}

// ChannelTasksResponse is returned by GET /channels/{channel}/tasks.
type ChannelTasksResponse struct {
	ChannelID string              `json:"channel_id"`
	Running   []dispatch.Snapshot `json:"running"`
	Pending   []dispatch.Snapshot `json:"pending"`
}

// ChannelsResponse is returned by GET /channels.
type ChannelsResponse struct {
	Channels []ChannelTasksResponse `json:"channels"`
}

// CancelResponse is returned by DELETE /channels/{channel}/task.
type CancelResponse struct {
	ChannelID string `json:"channel_id"`
	Cancelled bool   `json:"cancelled"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Tasks []history.Record `json:"tasks"`
}

// BudgetResponse is returned by GET /budget.
type BudgetResponse struct {
	MonthlyUSD float64             `json:"monthly_usd"`
	SpentUSD   float64             `json:"spent_usd"`
	Percent    float64             `json:"percent"`
	Channels   []cost.ChannelSpend `json:"channels"`
}
