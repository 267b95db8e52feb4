package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// HealthState tracks service health from /healthz polling.
type HealthState struct {
	Status        string
	UptimeSeconds int64
	Channels      int
	Running       int
	Pending       int
	Connected     bool
	LastCheck     time.Time
}

// badge summarizes the connection and /healthz status.
func (h HealthState) badge(theme Theme) string {
	switch {
	case !h.Connected:
		return "🔌 " + theme.Bad.Render("CONNECTING")
	case h.Status != "" && h.Status != "ok":
		return "⚠️ " + theme.Bad.Render("DEGRADED")
	default:
		return "✅ " + theme.Good.Render("HEALTHY")
	}
}

func renderHeader(health HealthState, beat Heartbeat, pulse Pulse, theme Theme, width int) string {
	innerWidth := width - 4

	title := " SLACKAGENT WATCH " + theme.Accent.Render(beat.Glyph())
	clock := theme.Dim.Render(time.Now().Format("15:04:05"))
	gap := max(1, innerWidth-lipgloss.Width(title)-lipgloss.Width(clock)-4)

	load := fmt.Sprintf("Channels: %d  Running: %s  Queued: %s",
		health.Channels,
		theme.Busy.Render(fmt.Sprint(health.Running)),
		theme.Waiting.Render(fmt.Sprint(health.Pending)),
	)

	lastEvent := "never"
	if at := pulse.LastEvent(); !at.IsZero() {
		lastEvent = time.Since(at).Round(time.Second).String() + " ago"
	}

	return theme.Panel.Width(innerWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		title+strings.Repeat(" ", gap)+clock+" ",
		fmt.Sprintf(" %s  ⏱ %s  %s", health.badge(theme), formatUptime(health.UptimeSeconds), load),
		fmt.Sprintf(" Last event: %s %s", lastEvent, pulse.Render(theme)),
	))
}

func formatUptime(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", seconds)
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%02dm", seconds/3600, (seconds%3600)/60)
	default:
		return fmt.Sprintf("%dd%02dh", seconds/86400, (seconds%86400)/3600)
	}
}
