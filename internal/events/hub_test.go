package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishDeliversToSubscribers(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TaskStarted, TaskPayload{TaskID: "abc", ChannelID: "C1"})

	select {
	case ev := <-ch:
		assert.Equal(t, TaskStarted, ev.Type)
		assert.Equal(t, int64(1), ev.ID)
		var p TaskPayload
		require.NoError(t, json.Unmarshal(ev.Data, &p))
		assert.Equal(t, "abc", p.TaskID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHubBacklogKeepsNewest(t *testing.T) {
	h := NewHub(3)
	for i := 0; i < 5; i++ {
		h.Publish(TaskQueued, nil)
	}

	replay, _, cancel := h.Follow(0, "")
	defer cancel()
	require.Len(t, replay, 3)
	assert.Equal(t, int64(3), replay[0].ID)
	assert.Equal(t, int64(5), replay[2].ID)

	replay, _, cancel2 := h.Follow(4, "")
	defer cancel2()
	require.Len(t, replay, 1)
	assert.Equal(t, int64(5), replay[0].ID)
}

func TestHubFollowNarrowsToChannel(t *testing.T) {
	h := NewHub(10)
	h.Publish(TaskQueued, TaskPayload{TaskID: "a", ChannelID: "C1"})
	h.Publish(TaskQueued, TaskPayload{TaskID: "b", ChannelID: "C2"})
	h.Publish(ConfigReload, map[string]any{"channels": 2})

	replay, live, cancel := h.Follow(0, "C1")
	defer cancel()
	require.Len(t, replay, 2)
	assert.Equal(t, "C1", replay[0].Channel)
	assert.Equal(t, ConfigReload, replay[1].Type, "unscoped events always pass")

	h.Publish(TaskStarted, TaskPayload{TaskID: "b", ChannelID: "C2"})
	h.Publish(TaskStarted, TaskPayload{TaskID: "a", ChannelID: "C1"})
	select {
	case ev := <-live:
		assert.Equal(t, int64(5), ev.ID)
		assert.Equal(t, "C1", ev.Channel)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHubSubscribeSkipsBacklog(t *testing.T) {
	h := NewHub(10)
	h.Publish(TaskQueued, nil)

	ch, cancel := h.Subscribe()
	defer cancel()
	h.Publish(TaskStarted, nil)

	ev := <-ch
	assert.Equal(t, TaskStarted, ev.Type)
}

func TestHubNilDataIsEmptyObject(t *testing.T) {
	h := NewHub(1)
	ev := h.Publish(ConfigReload, nil)
	assert.JSONEq(t, `{}`, string(ev.Data))
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(1)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			h.Publish(TaskFailed, nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, h.Subscribers())
}
