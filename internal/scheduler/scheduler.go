package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mattjoyce/slackagent/internal/events"
)

// Maintenance event types.
const (
	HistoryPruned = "maintenance.history_pruned"
	BudgetWarned  = "maintenance.budget_warned"
)

const jobTimeout = time.Minute

// Config holds the maintenance schedules. Empty schedules disable their job.
type Config struct {
	HistoryRetention     time.Duration
	PruneSchedule        string
	BudgetReportSchedule string
	OpsChannel           string
}

// Scheduler runs housekeeping jobs on cron schedules.
type Scheduler struct {
	cfg      Config
	history  HistoryStore
	budget   BudgetSource
	poster   Poster
	events   *events.Hub
	logger   *slog.Logger
	cron     *cron.Cron
	now      func() time.Time
	stopOnce sync.Once
}

// New creates a new Scheduler instance. budget and poster may be nil, which
// disables the budget report.
func New(cfg Config, history HistoryStore, budget BudgetSource, poster Poster, hub *events.Hub, logger *slog.Logger) *Scheduler {
	if hub == nil {
		hub = events.NewHub(32)
	}
	logger = logger.With("component", "scheduler")
	return &Scheduler{
		cfg:     cfg,
		history: history,
		budget:  budget,
		poster:  poster,
		events:  hub,
		logger:  logger,
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
			cron.WithLogger(cronLogger{logger}),
		),
		now: time.Now,
	}
}

// Start recovers tasks abandoned by a previous process, registers the jobs
// and starts the cron loop. It returns once the jobs are scheduled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler")

	if err := s.recoverAbandoned(ctx); err != nil {
		return fmt.Errorf("scheduler crash recovery failed: %w", err)
	}

	if s.cfg.PruneSchedule != "" && s.cfg.HistoryRetention > 0 {
		if _, err := s.cron.AddFunc(s.cfg.PruneSchedule, func() { s.pruneHistory(ctx) }); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", s.cfg.PruneSchedule, err)
		}
	}
	if s.reportsBudget() {
		if _, err := s.cron.AddFunc(s.cfg.BudgetReportSchedule, func() { s.reportBudget(ctx) }); err != nil {
			return fmt.Errorf("invalid budget report schedule %q: %w", s.cfg.BudgetReportSchedule, err)
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for running jobs and stops the scheduler. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping scheduler")
		<-s.cron.Stop().Done()
		s.logger.Info("Scheduler stopped")
	})
}

func (s *Scheduler) reportsBudget() bool {
	return s.cfg.BudgetReportSchedule != "" && s.cfg.OpsChannel != "" && s.budget != nil && s.poster != nil
}

// recoverAbandoned marks tasks left pending or running by a crashed process.
// The dispatcher keeps its queues in memory, so they cannot be resumed.
func (s *Scheduler) recoverAbandoned(ctx context.Context) error {
	n, err := s.history.MarkAbandoned(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Warn("Marked abandoned tasks from a previous run", "count", n)
	}
	return nil
}

func (s *Scheduler) pruneHistory(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.cfg.HistoryRetention)
	n, err := s.history.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to prune task history", "error", err)
		return
	}
	s.logger.Info("Pruned task history", "removed", n, "cutoff", cutoff.UTC())
	s.events.Publish(HistoryPruned, map[string]any{"removed": n})
}

func (s *Scheduler) reportBudget(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	over, err := s.budget.OverWarnThreshold(ctx)
	if err != nil {
		s.logger.Error("Failed to check budget", "error", err)
		return
	}
	if !over {
		return
	}
	status, err := s.budget.FormatBudgetStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to format budget status", "error", err)
		return
	}
	if _, err := s.poster.PostNew(ctx, s.cfg.OpsChannel, ":warning: Monthly agent budget: "+status); err != nil {
		s.logger.Error("Failed to post budget report", "channel", s.cfg.OpsChannel, "error", err)
		return
	}
	s.events.Publish(BudgetWarned, map[string]any{"status": status})
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
