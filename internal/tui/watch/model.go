package watch

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/slackagent/internal/events"
)

const maxEventLog = 50

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	client Client

	width  int
	height int

	// State
	health      HealthState
	channels    map[string]*ChannelState
	maintenance MaintenanceState
	eventLog    []events.Event
	lastEventID int64

	heartbeat Heartbeat
	pulse     Pulse

	// UI state
	theme           Theme
	selectedChannel int

	hubEvents chan events.Event

	lastError string
}

// New creates a new watch TUI model.
func New(client Client) *Model {
	return &Model{
		client:    client,
		channels:  make(map[string]*ChannelState),
		eventLog:  make([]events.Event, 0),
		hubEvents: make(chan events.Event, 100),
		pulse:     NewPulse(),
		theme:     NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.client.subscribeToEvents(0, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		m.client.fetchHealth,
		m.client.fetchChannels,
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.selectedChannel > 0 {
				m.selectedChannel--
			}
		case "down", "j":
			if m.selectedChannel < len(m.channels)-1 {
				m.selectedChannel++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.heartbeat.Beat()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case eventMsg:
		m.applyEvent(events.Event(msg))
		return m, receiveNextEvent(m.hubEvents)

	case channelsMsg:
		seedChannels(m.channels, msg)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Channels = msg.Channels
		m.health.Running = msg.Running
		m.health.Pending = msg.Pending
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""

		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return m.client.fetchHealth()
		})

	case sseDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "SSE disconnected, reconnecting..."
		// The pending receiveNextEvent keeps reading the same channel, so
		// the new subscription only needs to be started.
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, m.client.subscribeToEvents(m.lastEventID, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return m.client.fetchHealth()
		})
	}

	return m, nil
}

// applyEvent folds one stream event into the model.
func (m *Model) applyEvent(e events.Event) {
	if e.ID > 0 && e.ID <= m.lastEventID {
		return
	}
	if e.ID > m.lastEventID {
		m.lastEventID = e.ID
	}

	m.eventLog = append([]events.Event{e}, m.eventLog...)
	if len(m.eventLog) > maxEventLog {
		m.eventLog = m.eventLog[:maxEventLog]
	}

	m.pulse.Hit()
	updateChannelState(m.channels, e)
	updateMaintenanceState(&m.maintenance, e)

	m.health.Connected = true
	m.lastError = ""
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting..."
	}

	header := renderHeader(m.health, m.heartbeat, m.pulse, m.theme, m.width)
	channels := renderChannels(m.channels, m.selectedChannel, m.theme, m.width)
	maintenance := renderMaintenance(m.maintenance, m.theme, m.width)
	eventStream := renderEventStream(m.eventLog, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.Bad.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [↑/↓] Select channel")

	parts := []string{header, channels, maintenance, eventStream}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
