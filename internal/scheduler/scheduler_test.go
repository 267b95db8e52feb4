package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/slackagent/internal/events"
	"github.com/mattjoyce/slackagent/internal/scheduler/mocks"
)

// TestLogBuffer is a bytes.Buffer that can be used to capture log output.
type TestLogBuffer struct {
	bytes.Buffer
}

// NewTestSlogger creates a new *slog.Logger that writes to a TestLogBuffer.
func NewTestSlogger() (*slog.Logger, *TestLogBuffer) {
	var buf TestLogBuffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), &buf
}

type fixture struct {
	history *mocks.MockHistoryStore
	budget  *mocks.MockBudgetSource
	poster  *mocks.MockPoster
	hub     *events.Hub
	logBuf  *TestLogBuffer
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	return &fixture{
		history: mocks.NewMockHistoryStore(ctrl),
		budget:  mocks.NewMockBudgetSource(ctrl),
		poster:  mocks.NewMockPoster(ctrl),
		hub:     events.NewHub(16),
	}
}

func (f *fixture) scheduler(cfg Config) *Scheduler {
	logger, buf := NewTestSlogger()
	f.logBuf = buf
	return New(cfg, f.history, f.budget, f.poster, f.hub, logger)
}

func TestRecoverAbandoned(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing abandoned", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(Config{})
		f.history.EXPECT().MarkAbandoned(ctx).Return(int64(0), nil)

		assert.NoError(t, s.recoverAbandoned(ctx))
		assert.NotContains(t, f.logBuf.String(), "abandoned tasks")
	})

	t.Run("abandoned tasks are logged", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(Config{})
		f.history.EXPECT().MarkAbandoned(ctx).Return(int64(3), nil)

		assert.NoError(t, s.recoverAbandoned(ctx))
		assert.Contains(t, f.logBuf.String(), "Marked abandoned tasks from a previous run")
	})

	t.Run("store error", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(Config{})
		f.history.EXPECT().MarkAbandoned(ctx).Return(int64(0), errors.New("db locked"))

		assert.Error(t, s.recoverAbandoned(ctx))
	})
}

func TestPruneHistory(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(Config{HistoryRetention: 48 * time.Hour})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sub, unsubscribe := f.hub.Subscribe()
	defer unsubscribe()

	f.history.EXPECT().Prune(gomock.Any(), now.Add(-48*time.Hour)).Return(int64(7), nil)
	s.pruneHistory(context.Background())

	select {
	case ev := <-sub:
		assert.Equal(t, HistoryPruned, ev.Type)
		assert.JSONEq(t, `{"removed":7}`, string(ev.Data))
	case <-time.After(time.Second):
		t.Fatal("no prune event")
	}

	f.history.EXPECT().Prune(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("disk full"))
	s.pruneHistory(context.Background())
	assert.Contains(t, f.logBuf.String(), "Failed to prune task history")
}

func TestReportBudget(t *testing.T) {
	ctx := context.Background()
	cfg := Config{BudgetReportSchedule: "@daily", OpsChannel: "C-OPS"}

	t.Run("under threshold posts nothing", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(cfg)
		f.budget.EXPECT().OverWarnThreshold(gomock.Any()).Return(false, nil)

		s.reportBudget(ctx)
	})

	t.Run("over threshold posts to the ops channel", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(cfg)
		gomock.InOrder(
			f.budget.EXPECT().OverWarnThreshold(gomock.Any()).Return(true, nil),
			f.budget.EXPECT().FormatBudgetStatus(gomock.Any()).Return("$410.00 / $500 (82%)", nil),
			f.poster.EXPECT().PostNew(gomock.Any(), "C-OPS", ":warning: Monthly agent budget: $410.00 / $500 (82%)").Return("1.2", nil),
		)

		s.reportBudget(ctx)
	})

	t.Run("post failure is logged", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(cfg)
		f.budget.EXPECT().OverWarnThreshold(gomock.Any()).Return(true, nil)
		f.budget.EXPECT().FormatBudgetStatus(gomock.Any()).Return("$600.00 / $500 (120%)", nil)
		f.poster.EXPECT().PostNew(gomock.Any(), "C-OPS", gomock.Any()).Return("", errors.New("channel_not_found"))

		s.reportBudget(ctx)
		assert.Contains(t, f.logBuf.String(), "Failed to post budget report")
	})

	t.Run("disabled without ops channel", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(Config{BudgetReportSchedule: "@daily"})
		assert.False(t, s.reportsBudget())
	})
}

func TestStartRegistersJobs(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(Config{
		HistoryRetention:     24 * time.Hour,
		PruneSchedule:        "@daily",
		BudgetReportSchedule: "0 9 * * 1-5",
		OpsChannel:           "C-OPS",
	})
	f.history.EXPECT().MarkAbandoned(gomock.Any()).Return(int64(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	assert.Len(t, s.cron.Entries(), 2)

	s.Stop()
	s.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(Config{HistoryRetention: time.Hour, PruneSchedule: "every tuesday"})
	f.history.EXPECT().MarkAbandoned(gomock.Any()).Return(int64(0), nil)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid prune schedule")
}

func TestStartFailsWhenRecoveryFails(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(Config{})
	f.history.EXPECT().MarkAbandoned(gomock.Any()).Return(int64(0), errors.New("db error"))

	assert.Error(t, s.Start(context.Background()))
}
