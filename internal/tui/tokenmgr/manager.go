// Package tokenmgr is the interactive scope picker behind
// "slackagent config token".
package tokenmgr

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/slackagent/internal/api"
	"github.com/mattjoyce/slackagent/internal/config"
)

var (
	titleStyle      = lipgloss.NewStyle().MarginLeft(2)
	paginationStyle = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle       = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
	quitTextStyle   = lipgloss.NewStyle().Margin(1, 0, 2, 4)
)

// Scopes lists every scope the admin API understands.
var Scopes = []struct {
	Scope string
	Desc  string
}{
	{"*", "Full administrative access (all scopes)"},
	{api.ScopeTasksRead, "List running and queued tasks per channel"},
	{api.ScopeTasksWrite, "Cancel running tasks (implies tasks:ro)"},
	{api.ScopeHistoryRead, "Read task history and the monthly budget"},
	{api.ScopeEventsRead, "Follow the real-time event stream (SSE)"},
	{api.ScopeMetrics, "Scrape Prometheus metrics"},
}

type item struct {
	scope    string
	desc     string
	selected bool
}

func (i item) Title() string {
	check := "[ ]"
	if i.selected {
		check = "[x]"
	}
	return fmt.Sprintf("%s %s", check, i.scope)
}
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.scope }

// Model is the bubbletea model for the scope picker.
type Model struct {
	list     list.Model
	quitting bool
	done     bool
	scopes   []string
}

// New builds a picker with the given scopes preselected.
func New(preselected ...string) *Model {
	var items []list.Item
	for _, s := range Scopes {
		items = append(items, item{scope: s.Scope, desc: s.Desc, selected: contains(preselected, s.Scope)})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select Scopes (Space to toggle, Enter to confirm)"
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle

	return &Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case " ":
			if i, ok := m.list.SelectedItem().(item); ok {
				i.selected = !i.selected
				m.list.SetItem(m.list.Index(), i)
			}
			return m, nil

		case "enter":
			m.done = true
			m.scopes = m.selected()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return quitTextStyle.Render("Cancelled.")
	}
	if m.done {
		return quitTextStyle.Render(fmt.Sprintf("Selected scopes: %s", strings.Join(m.scopes, ", ")))
	}
	return "\n" + m.list.View()
}

func (m Model) selected() []string {
	var out []string
	for _, li := range m.list.Items() {
		if it, ok := li.(item); ok && it.selected {
			out = append(out, it.scope)
		}
	}
	return out
}

// Result reports the confirmed scopes; ok is false if the picker was cancelled.
func (m Model) Result() (scopes []string, ok bool) {
	return m.scopes, m.done && !m.quitting
}

// GenerateToken returns a random 32-byte hex bearer token.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Snippet renders the api.auth.tokens entry for token as YAML.
func Snippet(token string, scopes []string) (string, error) {
	if len(scopes) == 0 {
		return "", fmt.Errorf("at least one scope is required")
	}
	for _, s := range scopes {
		if !isKnown(s) {
			return "", fmt.Errorf("unknown scope %q", s)
		}
	}
	doc := map[string]any{
		"api": map[string]any{
			"auth": map[string]any{
				"tokens": []config.APIToken{{Token: token, Scopes: scopes}},
			},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render token snippet: %w", err)
	}
	return string(out), nil
}

func isKnown(scope string) bool {
	for _, s := range Scopes {
		if s.Scope == scope {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
