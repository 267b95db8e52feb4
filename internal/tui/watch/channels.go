package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/slackagent/internal/dispatch"
	"github.com/mattjoyce/slackagent/internal/events"
)

const recentPerChannel = 3

// ChannelState tracks one Slack channel's tasks.
type ChannelState struct {
	ID      string
	Running []*TaskState
	Queued  []*TaskState
	// Recent holds finished tasks, newest first.
	Recent []*TaskState
}

// TaskState tracks one task seen on the event stream.
type TaskState struct {
	ID          string
	Description string
	Model       string
	Branch      string
	Status      string
	PRURL       string
	CostUSD     float64
	Error       string
	StartTime   time.Time
	EndTime     time.Time
}

// seedChannels replaces channel state with a registry snapshot.
func seedChannels(channels map[string]*ChannelState, resp channelsMsg) {
	for _, snap := range resp.Channels {
		c := getOrCreateChannel(channels, snap.ChannelID)
		c.Running = c.Running[:0]
		c.Queued = c.Queued[:0]
		for _, s := range snap.Running {
			c.Running = append(c.Running, fromSnapshot(s))
		}
		for _, s := range snap.Pending {
			c.Queued = append(c.Queued, fromSnapshot(s))
		}
	}
}

func fromSnapshot(s dispatch.Snapshot) *TaskState {
	return &TaskState{
		ID:          s.ID,
		Description: s.Description,
		Model:       s.Model,
		Branch:      s.Branch,
		Status:      strings.ToLower(string(s.Status)),
		StartTime:   s.StartedAt,
	}
}

// updateChannelState applies one task.* event.
func updateChannelState(channels map[string]*ChannelState, e events.Event) {
	if !strings.HasPrefix(e.Type, "task.") {
		return
	}
	var p events.TaskPayload
	if err := json.Unmarshal(e.Data, &p); err != nil || p.TaskID == "" || p.ChannelID == "" {
		return
	}
	c := getOrCreateChannel(channels, p.ChannelID)

	switch e.Type {
	case events.TaskQueued:
		if findTask(c.Queued, p.TaskID) == nil {
			c.Queued = append(c.Queued, &TaskState{ID: p.TaskID, Description: p.Description, Model: p.Model, Status: "queued"})
		}

	case events.TaskStarted:
		var task *TaskState
		c.Queued, task = removeTask(c.Queued, p.TaskID)
		if task == nil {
			task = &TaskState{ID: p.TaskID}
		}
		task.Description = p.Description
		task.Model = p.Model
		task.Branch = p.Branch
		task.Status = "running"
		task.StartTime = e.At
		if findTask(c.Running, p.TaskID) == nil {
			c.Running = append(c.Running, task)
		}

	case events.TaskCompleted, events.TaskFailed, events.TaskCancelled, events.TaskDropped:
		var task *TaskState
		c.Running, task = removeTask(c.Running, p.TaskID)
		if task == nil {
			c.Queued, task = removeTask(c.Queued, p.TaskID)
		}
		if task == nil {
			task = &TaskState{ID: p.TaskID, Description: p.Description, Model: p.Model}
		}
		task.Status = strings.TrimPrefix(e.Type, "task.")
		task.PRURL = p.PRURL
		task.CostUSD = p.CostUSD
		task.Error = p.Error
		task.EndTime = e.At

		c.Recent = append([]*TaskState{task}, c.Recent...)
		if len(c.Recent) > recentPerChannel {
			c.Recent = c.Recent[:recentPerChannel]
		}
	}
}

func findTask(tasks []*TaskState, id string) *TaskState {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func removeTask(tasks []*TaskState, id string) ([]*TaskState, *TaskState) {
	for i, t := range tasks {
		if t.ID == id {
			return append(tasks[:i], tasks[i+1:]...), t
		}
	}
	return tasks, nil
}

func getOrCreateChannel(channels map[string]*ChannelState, id string) *ChannelState {
	c, ok := channels[id]
	if !ok {
		c = &ChannelState{ID: id}
		channels[id] = c
	}
	return c
}

// sortedChannelIDs returns channel IDs in stable sorted order.
func sortedChannelIDs(channels map[string]*ChannelState) []string {
	ids := make([]string, 0, len(channels))
	for id := range channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func renderChannels(channels map[string]*ChannelState, selected int, theme Theme, width int) string {
	innerWidth := width - 4

	if len(channels) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("CHANNELS"),
			theme.Dim.Render("  No task activity yet..."),
		)
		return theme.Panel.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, id := range sortedChannelIDs(channels) {
		lines = append(lines, renderChannelRow(i+1, channels[id], i == selected, theme))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{theme.Title.Render("CHANNELS")}, lines...)...,
	)
	return theme.Panel.Width(innerWidth).Render(content)
}

func renderChannelRow(num int, c *ChannelState, isSelected bool, theme Theme) string {
	var statusStr string
	switch {
	case len(c.Running) > 0:
		statusStr = theme.Busy.Render(fmt.Sprintf("[%d running]", len(c.Running)))
	default:
		statusStr = theme.Dim.Render("[idle]")
	}
	if len(c.Queued) > 0 {
		statusStr += " " + theme.Waiting.Render(fmt.Sprintf("[%d queued]", len(c.Queued)))
	}

	var lastStr string
	if len(c.Recent) > 0 {
		last := c.Recent[0]
		lastStr = fmt.Sprintf("Last: %s %s", formatAgo(time.Since(last.EndTime)), theme.Outcome(last.Status))
	}

	nameStyle := lipgloss.NewStyle()
	if isSelected {
		nameStyle = nameStyle.Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))
	}

	var line strings.Builder
	fmt.Fprintf(&line, " %d. %s  %s  %s", num, nameStyle.Render(fmt.Sprintf("%-14s", c.ID)), statusStr, lastStr)

	for _, t := range c.Running {
		elapsed := "-"
		if !t.StartTime.IsZero() {
			elapsed = time.Since(t.StartTime).Round(time.Second).String()
		}
		fmt.Fprintf(&line, "\n    └─ %s %s (%s) %s",
			theme.Accent.Render(t.ID), truncate(t.Description, 48), t.Model, theme.Dim.Render(elapsed))
	}
	for i, t := range c.Queued {
		fmt.Fprintf(&line, "\n    %d. %s %s", i+1, theme.Waiting.Render(t.ID), truncate(t.Description, 48))
	}
	if isSelected {
		for _, t := range c.Recent {
			detail := t.PRURL
			if t.Error != "" {
				detail = t.Error
			}
			fmt.Fprintf(&line, "\n    %s %s %s %s",
				theme.Outcome(t.Status), theme.Dim.Render(t.ID), truncate(t.Description, 32), theme.Dim.Render(truncate(detail, 60)))
		}
	}
	return line.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func formatAgo(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}
