package cost

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/slackagent/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, budget float64) *Tracker {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTracker(db, budget, 80)
}

func TestCalculate(t *testing.T) {
	assert.InDelta(t, 0.105, Calculate("sonnet", 10000, 5000), 0.001)
	assert.InDelta(t, 0.525, Calculate("opus", 10000, 5000), 0.001)
	assert.InDelta(t, 0.00875, Calculate("haiku", 10000, 5000), 0.0001)
	assert.InDelta(t, Calculate("sonnet", 10000, 5000), Calculate("unknown", 10000, 5000), 1e-9)
	assert.InDelta(t, Calculate("opus", 1, 1), Calculate("OPUS", 1, 1), 1e-12)
}

func TestEstimateTokens(t *testing.T) {
	in, out := EstimateTokens("fix bug", "done!")
	assert.Equal(t, int64(14), in)
	assert.Equal(t, int64(5), out)
}

func TestTrackerMonthlySpend(t *testing.T) {
	tr := newTestTracker(t, 500)
	ctx := context.Background()

	_, err := tr.Record(ctx, "C123", "task1", "sonnet", 10000, 5000)
	require.NoError(t, err)
	_, err = tr.Record(ctx, "C123", "task2", "sonnet", 10000, 5000)
	require.NoError(t, err)

	spend, err := tr.MonthlySpend(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.21, spend, 0.001)
}

func TestTrackerIgnoresPreviousMonths(t *testing.T) {
	tr := newTestTracker(t, 500)
	ctx := context.Background()

	tr.now = func() time.Time { return time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC) }
	_, err := tr.Record(ctx, "C1", "old", "opus", 1_000_000, 0)
	require.NoError(t, err)

	tr.now = func() time.Time { return time.Date(2026, 2, 1, 1, 0, 0, 0, time.UTC) }
	spend, err := tr.MonthlySpend(ctx)
	require.NoError(t, err)
	assert.Zero(t, spend)
}

func TestTrackerBudgetPercent(t *testing.T) {
	tr := newTestTracker(t, 500)
	ctx := context.Background()

	_, err := tr.Record(ctx, "C123", "task1", "opus", 100000, 50000)
	require.NoError(t, err)

	pct, err := tr.BudgetPercent(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.05, pct, 0.01)
}

func TestTrackerWarnThreshold(t *testing.T) {
	tr := newTestTracker(t, 10)
	ctx := context.Background()

	_, err := tr.Record(ctx, "C123", "task1", "opus", 100000, 50000)
	require.NoError(t, err)
	over, err := tr.OverWarnThreshold(ctx)
	require.NoError(t, err)
	assert.False(t, over)

	_, err = tr.Record(ctx, "C123", "task2", "opus", 100000, 50000)
	require.NoError(t, err)
	over, err = tr.OverWarnThreshold(ctx)
	require.NoError(t, err)
	assert.True(t, over)
}

func TestTrackerZeroBudget(t *testing.T) {
	tr := newTestTracker(t, 0)
	ctx := context.Background()
	_, err := tr.Record(ctx, "C1", "t", "opus", 1_000_000, 1_000_000)
	require.NoError(t, err)

	pct, err := tr.BudgetPercent(ctx)
	require.NoError(t, err)
	assert.Zero(t, pct)
}

func TestTrackerFormatting(t *testing.T) {
	tr := newTestTracker(t, 500)
	ctx := context.Background()

	e, err := tr.Record(ctx, "C1", "t1", "opus", 100000, 50000)
	require.NoError(t, err)
	assert.Equal(t, "$5.25 (opus, 150K tokens)", tr.FormatSummary(e))

	status, err := tr.FormatBudgetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "$5.25 / $500 (1%)", status)
}

func TestTrackerSpendByChannel(t *testing.T) {
	tr := newTestTracker(t, 500)
	ctx := context.Background()

	_, _ = tr.Record(ctx, "C1", "a", "haiku", 1000, 1000)
	_, _ = tr.Record(ctx, "C2", "b", "opus", 100000, 50000)
	_, _ = tr.Record(ctx, "C2", "c", "opus", 100000, 50000)

	spend, err := tr.SpendByChannel(ctx)
	require.NoError(t, err)
	require.Len(t, spend, 2)
	assert.Equal(t, "C2", spend[0].ChannelID)
	assert.Equal(t, 2, spend[0].Tasks)
	assert.InDelta(t, 10.5, spend[0].CostUSD, 0.001)
}
