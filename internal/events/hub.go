package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Task lifecycle event types.
const (
	TaskQueued    = "task.queued"
	TaskStarted   = "task.started"
	TaskCompleted = "task.completed"
	TaskFailed    = "task.failed"
	TaskCancelled = "task.cancelled"
	TaskDropped   = "task.dropped"
	ConfigReload  = "config.reloaded"
)

type Event struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	At      time.Time       `json:"at"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// ChannelScoped payloads tag their event with a Slack channel so
// subscribers can follow a single channel.
type ChannelScoped interface {
	Channel() string
}

// TaskPayload is the data carried by task.* events.
type TaskPayload struct {
	TaskID      string  `json:"task_id"`
	ChannelID   string  `json:"channel_id"`
	Description string  `json:"description,omitempty"`
	Model       string  `json:"model,omitempty"`
	Branch      string  `json:"branch,omitempty"`
	Position    int     `json:"position,omitempty"`
	PRURL       string  `json:"pr_url,omitempty"`
	CostUSD     float64 `json:"cost_usd,omitempty"`
	Error       string  `json:"error,omitempty"`
	DurationMS  int64   `json:"duration_ms,omitempty"`
}

func (p TaskPayload) Channel() string { return p.ChannelID }

// Hub fans task events out to subscribers and keeps a bounded backlog so a
// reconnecting client can resume from its last seen ID.
type Hub struct {
	mu      sync.Mutex
	lastID  int64
	backlog []Event
	limit   int
	subs    map[*subscriber]struct{}
}

type subscriber struct {
	channel string
	ch      chan Event
}

func (s *subscriber) wants(ev Event) bool {
	return s.channel == "" || ev.Channel == "" || ev.Channel == s.channel
}

func NewHub(backlog int) *Hub {
	if backlog <= 0 {
		backlog = 100
	}
	return &Hub{
		backlog: make([]Event, 0, backlog),
		limit:   backlog,
		subs:    make(map[*subscriber]struct{}),
	}
}

// Publish records an event and fans it out. A subscriber whose buffer is
// full misses the event; the publisher never blocks.
func (h *Hub) Publish(eventType string, data any) Event {
	payload := json.RawMessage("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}
	var channel string
	if scoped, ok := data.(ChannelScoped); ok {
		channel = scoped.Channel()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	ev := Event{ID: h.lastID, Type: eventType, At: time.Now().UTC(), Channel: channel, Data: payload}

	h.backlog = append(h.backlog, ev)
	if over := len(h.backlog) - h.limit; over > 0 {
		n := copy(h.backlog, h.backlog[over:])
		h.backlog = h.backlog[:n]
	}

	for s := range h.subs {
		if !s.wants(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
	return ev
}

// Follow replays backlog events newer than afterID and subscribes to what
// follows, both narrowed to channel ("" for all). Events without a channel
// always pass. The replay and the registration happen under one lock, so
// nothing is duplicated or lost between them. afterID < 0 skips the replay.
func (h *Hub) Follow(afterID int64, channel string) ([]Event, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &subscriber{channel: channel, ch: make(chan Event, 128)}
	var replay []Event
	if afterID >= 0 {
		for _, ev := range h.backlog {
			if ev.ID > afterID && s.wants(ev) {
				replay = append(replay, ev)
			}
		}
	}
	h.subs[s] = struct{}{}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[s]; ok {
			delete(h.subs, s)
			close(s.ch)
		}
	}
	return replay, s.ch, cancel
}

// Subscribe follows every channel from now on. The returned func
// unsubscribes and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	_, ch, cancel := h.Follow(-1, "")
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
