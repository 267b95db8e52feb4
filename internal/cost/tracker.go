package cost

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded task cost.
type Entry struct {
	ChannelID    string    `json:"channel_id"`
	TaskID       string    `json:"task_id"`
	Model        string    `json:"model"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChannelSpend aggregates one channel's spend for a month.
type ChannelSpend struct {
	ChannelID string  `json:"channel_id"`
	Tasks     int     `json:"tasks"`
	CostUSD   float64 `json:"cost_usd"`
}

// Tracker persists cost entries in sqlite and reports spend against a monthly budget.
type Tracker struct {
	db          *sql.DB
	budget      float64
	warnPercent float64
	now         func() time.Time
}

// NewTracker creates a tracker. A budget of zero disables budget percentages.
func NewTracker(db *sql.DB, monthlyBudget, warnPercent float64) *Tracker {
	return &Tracker{
		db:          db,
		budget:      monthlyBudget,
		warnPercent: warnPercent,
		now:         time.Now,
	}
}

// Budget returns the configured monthly budget in USD.
func (t *Tracker) Budget() float64 {
	return t.budget
}

// Record prices a token count and persists it.
func (t *Tracker) Record(ctx context.Context, channelID, taskID, model string, inputTokens, outputTokens int64) (Entry, error) {
	e := Entry{
		ChannelID:    channelID,
		TaskID:       taskID,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      Calculate(model, inputTokens, outputTokens),
		CreatedAt:    t.now().UTC(),
	}

	_, err := t.db.ExecContext(ctx, `
INSERT INTO cost_entries(channel_id, task_id, model, input_tokens, output_tokens, cost_usd, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, e.ChannelID, e.TaskID, e.Model, e.InputTokens, e.OutputTokens, e.CostUSD, e.CreatedAt.Format(timeLayout))
	if err != nil {
		return e, fmt.Errorf("insert cost entry: %w", err)
	}
	return e, nil
}

// MonthlySpend sums the current UTC calendar month.
func (t *Tracker) MonthlySpend(ctx context.Context) (float64, error) {
	start, end := t.monthBounds()
	var total sql.NullFloat64
	err := t.db.QueryRowContext(ctx, `
SELECT SUM(cost_usd) FROM cost_entries WHERE created_at >= ? AND created_at < ?;
`, start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum monthly spend: %w", err)
	}
	return total.Float64, nil
}

// SpendByChannel breaks the current month's spend down per channel, highest first.
func (t *Tracker) SpendByChannel(ctx context.Context) ([]ChannelSpend, error) {
	start, end := t.monthBounds()
	rows, err := t.db.QueryContext(ctx, `
SELECT channel_id, COUNT(*), SUM(cost_usd)
FROM cost_entries
WHERE created_at >= ? AND created_at < ?
GROUP BY channel_id
ORDER BY SUM(cost_usd) DESC, channel_id ASC;
`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query channel spend: %w", err)
	}
	defer rows.Close()

	var out []ChannelSpend
	for rows.Next() {
		var cs ChannelSpend
		if err := rows.Scan(&cs.ChannelID, &cs.Tasks, &cs.CostUSD); err != nil {
			return nil, fmt.Errorf("scan channel spend: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// BudgetPercent returns monthly spend as a percentage of the budget.
func (t *Tracker) BudgetPercent(ctx context.Context) (float64, error) {
	if t.budget <= 0 {
		return 0, nil
	}
	spend, err := t.MonthlySpend(ctx)
	if err != nil {
		return 0, err
	}
	return spend / t.budget * 100, nil
}

// OverWarnThreshold reports whether spend has reached the warn percentage.
func (t *Tracker) OverWarnThreshold(ctx context.Context) (bool, error) {
	pct, err := t.BudgetPercent(ctx)
	if err != nil {
		return false, err
	}
	return t.budget > 0 && pct >= t.warnPercent, nil
}

// FormatSummary renders one entry for a completion message.
func (t *Tracker) FormatSummary(e Entry) string {
	return fmt.Sprintf("$%.2f (%s, %dK tokens)", e.CostUSD, e.Model, (e.InputTokens+e.OutputTokens)/1000)
}

// FormatBudgetStatus renders monthly spend against the budget.
func (t *Tracker) FormatBudgetStatus(ctx context.Context) (string, error) {
	spend, err := t.MonthlySpend(ctx)
	if err != nil {
		return "", err
	}
	pct := 0.0
	if t.budget > 0 {
		pct = spend / t.budget * 100
	}
	return fmt.Sprintf("$%.2f / $%.0f (%.0f%%)", spend, t.budget, pct), nil
}

func (t *Tracker) monthBounds() (string, string) {
	now := t.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start.Format(timeLayout), end.Format(timeLayout)
}
