// Package watch implements the live dashboard behind "slackagent watch".
// It polls /healthz and follows the admin API event stream.
package watch

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorGreen  = lipgloss.Color("#98C379")
	colorYellow = lipgloss.Color("#E5C07B")
	colorRed    = lipgloss.Color("#E06C75")
	colorBlue   = lipgloss.Color("#61AFEF")
	colorGrey   = lipgloss.Color("#7F848E")
	colorFaint  = lipgloss.Color("#4B5263")
	colorFrame  = lipgloss.Color("#C678DD")
)

// Theme holds the dashboard styles. Task outcomes map to a glyph and a
// style through outcomes; everything else is a plain style.
type Theme struct {
	Good    lipgloss.Style
	Busy    lipgloss.Style
	Bad     lipgloss.Style
	Waiting lipgloss.Style
	Gone    lipgloss.Style

	Panel    lipgloss.Style
	Title    lipgloss.Style
	Dim      lipgloss.Style
	Accent   lipgloss.Style
	PulseOn  lipgloss.Style
	PulseOff lipgloss.Style

	outcomes map[string]outcome
}

type outcome struct {
	glyph string
	style lipgloss.Style
}

func NewDefaultTheme() Theme {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	t := Theme{
		Good:    fg(colorGreen),
		Busy:    fg(colorYellow),
		Bad:     fg(colorRed),
		Waiting: fg(colorGrey),
		Gone:    fg(colorFaint),

		Panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFrame),
		Title:    lipgloss.NewStyle().Bold(true).Foreground(colorBlue).Padding(0, 1),
		Dim:      fg(colorGrey),
		Accent:   fg(colorYellow),
		PulseOn:  fg(colorGreen),
		PulseOff: fg(colorFaint),
	}
	t.outcomes = map[string]outcome{
		"completed": {"✅", t.Good},
		"failed":    {"❌", t.Bad},
		"cancelled": {"⊘", t.Gone},
		"dropped":   {"↯", t.Gone},
	}
	return t
}

// Outcome renders the glyph for a finished task's status, or "" when the
// status is not terminal.
func (t Theme) Outcome(status string) string {
	o, ok := t.outcomes[status]
	if !ok {
		return ""
	}
	return o.style.Render(o.glyph)
}

// ForEvent picks the style of an event type in the stream panel.
func (t Theme) ForEvent(eventType string) lipgloss.Style {
	_, kind, _ := strings.Cut(eventType, ".")
	if strings.HasPrefix(eventType, "task.") {
		switch kind {
		case "completed":
			return t.Good
		case "failed", "dropped":
			return t.Bad
		case "started", "promoted":
			return t.Busy
		case "queued":
			return t.Waiting
		}
		return t.Dim
	}
	return t.Accent
}
