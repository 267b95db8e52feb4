package watch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/slackagent/internal/api"
	"github.com/mattjoyce/slackagent/internal/dispatch"
	"github.com/mattjoyce/slackagent/internal/events"
)

func taskEvent(t *testing.T, typ string, p events.TaskPayload) events.Event {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return events.Event{Type: typ, At: time.Now(), Data: data}
}

func TestUpdateChannelStateLifecycle(t *testing.T) {
	channels := make(map[string]*ChannelState)

	updateChannelState(channels, taskEvent(t, events.TaskQueued, events.TaskPayload{TaskID: "t1", ChannelID: "C1", Description: "fix login", Model: "sonnet", Position: 1}))
	require.Contains(t, channels, "C1")
	require.Len(t, channels["C1"].Queued, 1)
	assert.Equal(t, "queued", channels["C1"].Queued[0].Status)

	updateChannelState(channels, taskEvent(t, events.TaskStarted, events.TaskPayload{TaskID: "t1", ChannelID: "C1", Description: "fix login", Model: "sonnet", Branch: "agent/t1"}))
	c := channels["C1"]
	assert.Empty(t, c.Queued)
	require.Len(t, c.Running, 1)
	assert.Equal(t, "agent/t1", c.Running[0].Branch)
	assert.False(t, c.Running[0].StartTime.IsZero())

	updateChannelState(channels, taskEvent(t, events.TaskCompleted, events.TaskPayload{TaskID: "t1", ChannelID: "C1", PRURL: "https://github.com/o/r/pull/7", CostUSD: 0.42}))
	assert.Empty(t, c.Running)
	require.Len(t, c.Recent, 1)
	assert.Equal(t, "completed", c.Recent[0].Status)
	assert.Equal(t, "fix login", c.Recent[0].Description)
	assert.Equal(t, "https://github.com/o/r/pull/7", c.Recent[0].PRURL)
	assert.InDelta(t, 0.42, c.Recent[0].CostUSD, 1e-9)
}

func TestUpdateChannelStateCancelQueued(t *testing.T) {
	channels := make(map[string]*ChannelState)
	updateChannelState(channels, taskEvent(t, events.TaskQueued, events.TaskPayload{TaskID: "t1", ChannelID: "C1"}))
	updateChannelState(channels, taskEvent(t, events.TaskDropped, events.TaskPayload{TaskID: "t1", ChannelID: "C1", Error: "channel removed"}))

	c := channels["C1"]
	assert.Empty(t, c.Queued)
	require.Len(t, c.Recent, 1)
	assert.Equal(t, "dropped", c.Recent[0].Status)
	assert.Equal(t, "channel removed", c.Recent[0].Error)
}

func TestUpdateChannelStateKeepsRecentBounded(t *testing.T) {
	channels := make(map[string]*ChannelState)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		updateChannelState(channels, taskEvent(t, events.TaskFailed, events.TaskPayload{TaskID: id, ChannelID: "C1"}))
	}
	c := channels["C1"]
	require.Len(t, c.Recent, recentPerChannel)
	assert.Equal(t, "e", c.Recent[0].ID)
}

func TestUpdateChannelStateIgnoresOtherEvents(t *testing.T) {
	channels := make(map[string]*ChannelState)
	updateChannelState(channels, events.Event{Type: events.ConfigReload, Data: []byte(`{"channels":2}`)})
	updateChannelState(channels, events.Event{Type: events.TaskQueued, Data: []byte(`not json`)})
	updateChannelState(channels, events.Event{Type: events.TaskQueued, Data: []byte(`{"task_id":"t1"}`)})
	assert.Empty(t, channels)
}

func TestSeedChannels(t *testing.T) {
	channels := make(map[string]*ChannelState)
	started := time.Now().Add(-time.Minute)
	seedChannels(channels, channelsMsg{Channels: []api.ChannelTasksResponse{{
		ChannelID: "C2",
		Running:   []dispatch.Snapshot{{ID: "r1", Description: "refactor", Model: "opus", Status: dispatch.StatusRunning, StartedAt: started}},
		Pending:   []dispatch.Snapshot{{ID: "p1", Status: dispatch.StatusPending}},
	}}})

	c := channels["C2"]
	require.NotNil(t, c)
	require.Len(t, c.Running, 1)
	assert.Equal(t, "running", c.Running[0].Status)
	assert.Equal(t, started, c.Running[0].StartTime)
	require.Len(t, c.Queued, 1)
	assert.Equal(t, "p1", c.Queued[0].ID)
}

func TestSortedChannelIDs(t *testing.T) {
	channels := map[string]*ChannelState{"C3": {}, "C1": {}, "C2": {}}
	assert.Equal(t, []string{"C1", "C2", "C3"}, sortedChannelIDs(channels))
}

func TestRenderChannelsEmptyAndPopulated(t *testing.T) {
	theme := NewDefaultTheme()
	assert.Contains(t, renderChannels(map[string]*ChannelState{}, 0, theme, 100), "No task activity yet")

	channels := map[string]*ChannelState{
		"C1": {ID: "C1", Running: []*TaskState{{ID: "t1", Description: "fix login", Model: "sonnet", StartTime: time.Now()}}},
	}
	out := renderChannels(channels, 0, theme, 120)
	assert.Contains(t, out, "C1")
	assert.Contains(t, out, "fix login")
	assert.Contains(t, out, "1 running")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b\tc", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
