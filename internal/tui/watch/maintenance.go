package watch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/slackagent/internal/events"
	"github.com/mattjoyce/slackagent/internal/scheduler"
)

// MaintenanceState tracks background housekeeping seen on the stream.
type MaintenanceState struct {
	LastPrune     time.Time
	PrunedRows    int64
	LastBudgetAt  time.Time
	BudgetStatus  string
	LastReload    time.Time
	ChannelsAfter int
}

// updateMaintenanceState applies maintenance.* and config.* events.
func updateMaintenanceState(s *MaintenanceState, e events.Event) {
	var data struct {
		Removed  int64  `json:"removed"`
		Status   string `json:"status"`
		Channels int    `json:"channels"`
	}
	_ = json.Unmarshal(e.Data, &data)

	switch e.Type {
	case scheduler.HistoryPruned:
		s.LastPrune = e.At
		s.PrunedRows = data.Removed
	case scheduler.BudgetWarned:
		s.LastBudgetAt = e.At
		s.BudgetStatus = data.Status
	case events.ConfigReload:
		s.LastReload = e.At
		s.ChannelsAfter = data.Channels
	}
}

func renderMaintenance(s MaintenanceState, theme Theme, width int) string {
	innerWidth := width - 4

	row := func(label string, at time.Time, detail string) string {
		when := theme.Dim.Render("never")
		if !at.IsZero() {
			when = formatAgo(time.Since(at))
		}
		return fmt.Sprintf(" %-16s %-10s %s", label, when, detail)
	}

	var budget string
	if s.BudgetStatus != "" {
		budget = theme.Bad.Render(s.BudgetStatus)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("MAINTENANCE"),
		row("History prune", s.LastPrune, fmt.Sprintf("%d row(s) removed", s.PrunedRows)),
		row("Budget warning", s.LastBudgetAt, budget),
		row("Config reload", s.LastReload, fmt.Sprintf("%d channel(s)", s.ChannelsAfter)),
	)
	return theme.Panel.Width(innerWidth).Render(content)
}
