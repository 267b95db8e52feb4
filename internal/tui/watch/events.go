package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/slackagent/internal/events"
)

const maxEventLines = 10

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4

	if len(eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EVENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Panel.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range eventLog {
		if i >= maxEventLines {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EVENT STREAM"),
		eventsText,
	)

	return theme.Panel.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	typeName := theme.ForEvent(e.Type).Render(fmt.Sprintf("%-20s", e.Type))
	return fmt.Sprintf("%s %s %s", ts, typeName, extractEventDesc(e))
}

// extractEventDesc builds a one-line summary from a task payload, falling
// back to the raw data for other event types.
func extractEventDesc(e events.Event) string {
	var p events.TaskPayload
	if strings.HasPrefix(e.Type, "task.") && json.Unmarshal(e.Data, &p) == nil && p.TaskID != "" {
		parts := []string{fmt.Sprintf("[%s]", p.TaskID), p.ChannelID}
		switch {
		case p.Error != "":
			parts = append(parts, truncate(p.Error, 40))
		case p.PRURL != "":
			parts = append(parts, p.PRURL)
		case p.Position > 0:
			parts = append(parts, fmt.Sprintf("#%d in queue", p.Position))
		case p.Description != "":
			parts = append(parts, truncate(p.Description, 40))
		}
		if p.CostUSD > 0 {
			parts = append(parts, fmt.Sprintf("$%.2f", p.CostUSD))
		}
		return strings.Join(parts, " ")
	}

	raw := string(e.Data)
	if len(raw) > 60 {
		raw = raw[:60] + "..."
	}
	return raw
}
