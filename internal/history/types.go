package history

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	// StatusDropped marks a queued task whose channel lost its configuration before promotion.
	StatusDropped Status = "dropped"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusDropped:
		return true
	}
	return false
}

// Record is one task as persisted in task_log.
type Record struct {
	ID          string     `json:"id"`
	ChannelID   string     `json:"channel_id"`
	Description string     `json:"description"`
	Model       string     `json:"model"`
	Requester   string     `json:"requester,omitempty"`
	Status      Status     `json:"status"`
	Branch      string     `json:"branch,omitempty"`
	ThreadTS    string     `json:"thread_ts,omitempty"`
	PRURL       string     `json:"pr_url,omitempty"`
	DiffStats   string     `json:"diff_stats,omitempty"`
	CostUSD     float64    `json:"cost_usd,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateRequest describes a task entering the system.
type CreateRequest struct {
	ID          string
	ChannelID   string
	Description string
	Model       string
	Requester   string
	Status      Status
}

// Outcome is written when a task reaches a terminal state.
type Outcome struct {
	Status    Status
	PRURL     string
	DiffStats string
	CostUSD   float64
	LastError string
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	ChannelID string
	Status    Status
	Limit     int
}

var ErrTaskNotFound = errors.New("task not found")
