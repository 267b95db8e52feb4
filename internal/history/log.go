package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattjoyce/slackagent/internal/notify"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	maxErrorBytes = 16 * 1024
	defaultLimit  = 50
	maxLimit      = 1000
)

// Log persists task lifecycle rows in the task_log table.
type Log struct {
	db *sql.DB
}

func New(db *sql.DB) *Log {
	return &Log{db: db}
}

// Create inserts a row for a newly admitted task.
func (l *Log) Create(ctx context.Context, req CreateRequest) error {
	if req.ID == "" {
		return fmt.Errorf("task id is empty")
	}
	if req.ChannelID == "" {
		return fmt.Errorf("channel id is empty")
	}
	status := req.Status
	if status == "" {
		status = StatusPending
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err := l.db.ExecContext(ctx, `
INSERT INTO task_log(id, channel_id, description, model, requester, status, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, req.ID, req.ChannelID, req.Description, req.Model, nullable(req.Requester), status, now)
	if err != nil {
		return fmt.Errorf("insert task_log: %w", err)
	}
	return nil
}

// MarkRunning records that a task started, with its branch and thread.
func (l *Log) MarkRunning(ctx context.Context, id, branch, threadTS string) error {
	res, err := l.db.ExecContext(ctx, `
UPDATE task_log
SET status = ?, branch = ?, thread_ts = ?
WHERE id = ? AND completed_at IS NULL;
`, StatusRunning, nullable(branch), nullable(threadTS), id)
	if err != nil {
		return fmt.Errorf("mark task running: %w", err)
	}
	return requireRow(res)
}

// Complete records a terminal outcome. A row that already completed is left untouched
// and ErrTaskNotFound is returned.
func (l *Log) Complete(ctx context.Context, id string, out Outcome) error {
	if !out.Status.Terminal() {
		return fmt.Errorf("invalid terminal status: %q", out.Status)
	}
	lastErr := notify.Truncate(out.LastError, maxErrorBytes)

	completedAt := time.Now().UTC().Format(timeLayout)
	res, err := l.db.ExecContext(ctx, `
UPDATE task_log
SET status = ?, pr_url = ?, diff_stats = ?, cost_usd = ?, last_error = ?, completed_at = ?
WHERE id = ? AND completed_at IS NULL;
`, out.Status, nullable(out.PRURL), nullable(out.DiffStats), out.CostUSD, nullable(lastErr), completedAt, id)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return requireRow(res)
}

// Get returns one task by id.
func (l *Log) Get(ctx context.Context, id string) (*Record, error) {
	row := l.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?;`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return rec, nil
}

// List returns tasks newest first.
func (l *Log) List(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.ChannelID != "" {
		where = append(where, "channel_id = ?")
		args = append(args, f.ChannelID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?;"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// Prune deletes terminal rows completed before cutoff and returns how many were removed.
func (l *Log) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
DELETE FROM task_log
WHERE completed_at IS NOT NULL AND completed_at < ?;
`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune task_log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune task_log: %w", err)
	}
	return n, nil
}

// MarkAbandoned closes rows left non-terminal by a previous process.
// Pending queues are not persisted, so such rows can never finish.
func (l *Log) MarkAbandoned(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
UPDATE task_log
SET status = ?, last_error = ?, completed_at = ?
WHERE completed_at IS NULL;
`, StatusCancelled, "abandoned at restart", time.Now().UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("mark abandoned tasks: %w", err)
	}
	return res.RowsAffected()
}

const selectColumns = `
SELECT id, channel_id, description, model, requester, status, branch, thread_ts,
  pr_url, diff_stats, cost_usd, last_error, created_at, completed_at
FROM task_log`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec          Record
		status       string
		requester    sql.NullString
		branch       sql.NullString
		threadTS     sql.NullString
		prURL        sql.NullString
		diffStats    sql.NullString
		costUSD      sql.NullFloat64
		lastError    sql.NullString
		createdAtS   string
		completedAtS sql.NullString
	)
	if err := s.Scan(
		&rec.ID, &rec.ChannelID, &rec.Description, &rec.Model, &requester, &status, &branch, &threadTS,
		&prURL, &diffStats, &costUSD, &lastError, &createdAtS, &completedAtS,
	); err != nil {
		return nil, err
	}

	rec.Status = Status(status)
	rec.Requester = requester.String
	rec.Branch = branch.String
	rec.ThreadTS = threadTS.String
	rec.PRURL = prURL.String
	rec.DiffStats = diffStats.String
	rec.CostUSD = costUSD.Float64
	rec.LastError = lastError.String
	if t, err := time.Parse(time.RFC3339Nano, createdAtS); err == nil {
		rec.CreatedAt = t
	}
	if completedAtS.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completedAtS.String); err == nil {
			rec.CompletedAt = &t
		}
	}
	return &rec, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
