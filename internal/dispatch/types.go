package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of a TaskExecution.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"

	// StatusWaitingResponse is reserved for tasks parked on a human reply. Nothing emits it yet.
	StatusWaitingResponse Status = "WAITING_RESPONSE"
	StatusCompleted       Status = "COMPLETED"
	StatusFailed          Status = "FAILED"
	StatusCancelled       Status = "CANCELLED"
)

// Terminal reports whether s is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TaskExecution is one submitted unit of work. The pipeline goroutine that runs
// it owns the cancel func; everything else goes through guarded methods.
type TaskExecution struct {
	ID          string
	ChannelID   string
	Description string
	Model       string
	Requester   string
	QueuedAt    time.Time

	mu        sync.Mutex
	status    Status
	threadTS  string
	branch    string
	startedAt time.Time
	lastError string
	prURL     string
	diffStats string
	costUSD   float64
	cancel    context.CancelFunc
}

func newTask(id, channelID, description, model, requester string, now time.Time) *TaskExecution {
	return &TaskExecution{
		ID:          id,
		ChannelID:   channelID,
		Description: description,
		Model:       model,
		Requester:   requester,
		QueuedAt:    now,
		status:      StatusPending,
	}
}

// transitionLocked moves the task to next unless it already reached a
// terminal state. Callers hold t.mu.
func (t *TaskExecution) transitionLocked(next Status) bool {
	if t.status.Terminal() {
		return false
	}
	t.status = next
	return true
}

// fail records errText and moves the task to FAILED.
func (t *TaskExecution) fail(errText string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.transitionLocked(StatusFailed) {
		return false
	}
	t.lastError = errText
	return true
}

func (t *TaskExecution) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *TaskExecution) thread() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.threadTS
}

// Snapshot is a point-in-time copy of a TaskExecution safe to hand to callers.
type Snapshot struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	Description string    `json:"description"`
	Model       string    `json:"model"`
	Requester   string    `json:"requester,omitempty"`
	Status      Status    `json:"status"`
	ThreadTS    string    `json:"thread_ts,omitempty"`
	Branch      string    `json:"branch,omitempty"`
	Error       string    `json:"error,omitempty"`
	PRURL       string    `json:"pr_url,omitempty"`
	DiffStats   string    `json:"diff_stats,omitempty"`
	CostUSD     float64   `json:"cost_usd,omitempty"`
	QueuedAt    time.Time `json:"queued_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
}

func (t *TaskExecution) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ID:          t.ID,
		ChannelID:   t.ChannelID,
		Description: t.Description,
		Model:       t.Model,
		Requester:   t.Requester,
		Status:      t.status,
		ThreadTS:    t.threadTS,
		Branch:      t.branch,
		Error:       t.lastError,
		PRURL:       t.prURL,
		DiffStats:   t.diffStats,
		CostUSD:     t.costUSD,
		QueuedAt:    t.QueuedAt,
		StartedAt:   t.startedAt,
	}
}

// String renders a snapshot for chat status listings.
func (s Snapshot) String() string {
	line := fmt.Sprintf("`%s` %s (%s)", s.ID, s.Description, s.Model)
	if s.Status == StatusRunning && !s.StartedAt.IsZero() {
		line += fmt.Sprintf(" running for %s", time.Since(s.StartedAt).Round(time.Second))
	}
	return line
}
