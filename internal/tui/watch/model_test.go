package watch

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/slackagent/internal/events"
	"github.com/mattjoyce/slackagent/internal/scheduler"
)

func TestReadSSE(t *testing.T) {
	stream := strings.Join([]string{
		"id: 4",
		"event: task.queued",
		`data: {"task_id":"t1","channel_id":"C1"}`,
		"",
		": keep-alive",
		"",
		"id: 5",
		"event: config.reloaded",
		`data: {"channels":3}`,
		"",
	}, "\n")

	ch := make(chan events.Event, 4)
	readSSE(bufio.NewScanner(strings.NewReader(stream)), ch)
	close(ch)

	var got []events.Event
	for e := range ch {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].ID)
	assert.Equal(t, events.TaskQueued, got[0].Type)
	assert.JSONEq(t, `{"task_id":"t1","channel_id":"C1"}`, string(got[0].Data))
	assert.Equal(t, events.ConfigReload, got[1].Type)
}

func TestApplyEventDedupesReplayedIDs(t *testing.T) {
	m := New(Client{BaseURL: "http://localhost:8081"})
	e := taskEvent(t, events.TaskQueued, events.TaskPayload{TaskID: "t1", ChannelID: "C1"})
	e.ID = 7

	m.applyEvent(e)
	m.applyEvent(e)

	assert.Len(t, m.eventLog, 1)
	assert.Equal(t, int64(7), m.lastEventID)
	assert.Len(t, m.channels["C1"].Queued, 1)
}

func TestUpdateMaintenanceState(t *testing.T) {
	var s MaintenanceState
	at := taskEvent(t, "x", events.TaskPayload{}).At

	updateMaintenanceState(&s, events.Event{Type: scheduler.HistoryPruned, At: at, Data: []byte(`{"removed":12}`)})
	updateMaintenanceState(&s, events.Event{Type: scheduler.BudgetWarned, At: at, Data: []byte(`{"status":"$450 / $500 (90%)"}`)})
	updateMaintenanceState(&s, events.Event{Type: events.ConfigReload, At: at, Data: []byte(`{"channels":2}`)})

	assert.Equal(t, int64(12), s.PrunedRows)
	assert.Equal(t, "$450 / $500 (90%)", s.BudgetStatus)
	assert.Equal(t, 2, s.ChannelsAfter)
	assert.Equal(t, at, s.LastReload)
}

func TestExtractEventDesc(t *testing.T) {
	e := taskEvent(t, events.TaskQueued, events.TaskPayload{TaskID: "t1", ChannelID: "C1", Position: 2})
	assert.Equal(t, "[t1] C1 #2 in queue", extractEventDesc(e))

	e = taskEvent(t, events.TaskCompleted, events.TaskPayload{TaskID: "t1", ChannelID: "C1", PRURL: "https://x/pull/1", CostUSD: 1.5})
	assert.Equal(t, "[t1] C1 https://x/pull/1 $1.50", extractEventDesc(e))

	assert.Equal(t, `{"removed":1}`, extractEventDesc(events.Event{Type: scheduler.HistoryPruned, Data: []byte(`{"removed":1}`)}))
}

func TestPulseDecays(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Pulse{now: func() time.Time { return now }}
	assert.Equal(t, 0, p.Level())

	p.Hit()
	assert.Equal(t, pulseWidth, p.Level())

	now = now.Add(5 * time.Second)
	assert.Equal(t, 3, p.Level())

	now = now.Add(time.Minute)
	assert.Equal(t, 0, p.Level())
}

func TestHealthBadgeAndUptime(t *testing.T) {
	theme := NewDefaultTheme()
	assert.Contains(t, HealthState{}.badge(theme), "CONNECTING")
	assert.Contains(t, HealthState{Connected: true, Status: "ok"}.badge(theme), "HEALTHY")
	assert.Contains(t, HealthState{Connected: true, Status: "degraded"}.badge(theme), "DEGRADED")

	assert.Equal(t, "42s", formatUptime(42))
	assert.Equal(t, "2m05s", formatUptime(125))
	assert.Equal(t, "1h01m", formatUptime(3660))
	assert.Equal(t, "2d03h", formatUptime(2*86400+3*3600))
}

func TestThemeOutcome(t *testing.T) {
	theme := NewDefaultTheme()
	assert.Contains(t, theme.Outcome("completed"), "✅")
	assert.Contains(t, theme.Outcome("dropped"), "↯")
	assert.Empty(t, theme.Outcome("running"))
}
