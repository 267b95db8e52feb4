package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/mattjoyce/slackagent/internal/config"
	"github.com/mattjoyce/slackagent/internal/events"
	"github.com/mattjoyce/slackagent/internal/gitops"
	"github.com/mattjoyce/slackagent/internal/history"
	"github.com/mattjoyce/slackagent/internal/log"
	"github.com/mattjoyce/slackagent/internal/metrics"
	"github.com/mattjoyce/slackagent/internal/notify"
)

const (
	// DefaultMaxWorkers bounds concurrently executing pipelines when Options leaves it unset.
	DefaultMaxWorkers = 8

	// notifyTimeout bounds chat and bookkeeping calls made after a task's own context is gone.
	notifyTimeout = 15 * time.Second
)

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = errors.New("dispatcher is shutting down")

// Deps are the collaborators the dispatcher drives. Profiles, History, Events
// and Metrics are optional.
type Deps struct {
	Channels  ChannelLookup
	Repo      RepoOperator
	Generator CodeGenerator
	Notifier  Notifier
	Costs     CostRecorder
	Profiles  ProfileSource
	History   TaskLog
	Events    EventPublisher
	Metrics   *metrics.Metrics
}

// Options tune the dispatcher. Zero values take defaults.
type Options struct {
	MaxWorkers  int
	Timeouts    config.TimeoutsConfig
	WarnPercent float64
	ChannelsDir string
	// ResolveModel maps a short model name to the identifier passed to the CLI.
	ResolveModel func(short string) string
}

// Dispatcher admits tasks per channel policy and runs each admitted task through the pipeline.
type Dispatcher struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	sem     *semaphore.Weighted
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	running map[string][]*TaskExecution
	pending map[string][]*TaskExecution
	closed  bool

	newID func() string
	now   func() time.Time
}

// New creates a Dispatcher. It panics if a required dependency is nil.
func New(deps Deps, opts Options) *Dispatcher {
	if deps.Channels == nil || deps.Repo == nil || deps.Generator == nil || deps.Notifier == nil || deps.Costs == nil {
		panic("dispatch: Channels, Repo, Generator, Notifier and Costs are required")
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	defaults := config.Defaults()
	if opts.Timeouts.Setup <= 0 {
		opts.Timeouts.Setup = defaults.Timeouts.Setup
	}
	if opts.Timeouts.Generation <= 0 {
		opts.Timeouts.Generation = defaults.Timeouts.Generation
	}
	if opts.WarnPercent <= 0 {
		opts.WarnPercent = defaults.Budget.WarnPercent
	}
	if opts.ResolveModel == nil {
		opts.ResolveModel = defaults.ModelID
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Dispatcher{
		deps:    deps,
		opts:    opts,
		logger:  log.WithComponent("dispatch"),
		sem:     semaphore.NewWeighted(int64(opts.MaxWorkers)),
		baseCtx: ctx,
		stop:    stop,
		running: make(map[string][]*TaskExecution),
		pending: make(map[string][]*TaskExecution),
		newID:   func() string { return uuid.NewString()[:8] },
		now:     time.Now,
	}
}

// Submit applies the channel's concurrency policy to a raw task command and
// returns the reply for the requester. The error is non-nil only when the
// dispatcher no longer accepts work.
func (d *Dispatcher) Submit(ctx context.Context, channelID, rawCommand, requester string) (string, error) {
	cfg, ok := d.deps.Channels.Get(channelID)
	if !ok {
		d.deps.Metrics.Admission(metrics.AdmitUnconfigured)
		return notConfigured(d.opts.ChannelsDir), nil
	}

	model := ParseModel(rawCommand, cfg.DefaultModel)
	description := StripModelFlag(rawCommand)
	if description == "" {
		d.deps.Metrics.Admission(metrics.AdmitInvalid)
		return msgUsage, nil
	}

	warning, exhausted := d.checkBudget(ctx)
	if exhausted {
		d.deps.Metrics.Admission(metrics.AdmitOverBudget)
		return msgOverBudget, nil
	}

	task := newTask(d.newID(), channelID, description, model, requester, d.now())
	admit := metrics.AdmitStarted

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrShuttingDown
	}
	// A non-empty queue keeps the channel busy until promotion runs, so a
	// submit landing between Cancel and the pipeline's exit cannot jump it.
	if latest := d.busyWithLocked(channelID); latest != nil {
		switch cfg.OnConcurrent {
		case config.ConcurrencyQueue:
			d.pending[channelID] = append(d.pending[channelID], task)
			position := len(d.pending[channelID])
			d.updateDepthLocked()
			d.mu.Unlock()
			d.recordQueued(task, position)
			return queued(position) + warning, nil
		case config.ConcurrencyReject:
			d.mu.Unlock()
			d.deps.Metrics.Admission(metrics.AdmitRejected)
			return msgBusy, nil
		case config.ConcurrencyParallel:
			admit = metrics.AdmitParallel
		default:
			d.mu.Unlock()
			d.deps.Metrics.Admission(metrics.AdmitAsked)
			return askChoices(latest.Description), nil
		}
	}
	d.reserveLocked(task)
	d.mu.Unlock()

	d.deps.Metrics.Admission(admit)
	d.createHistory(task)
	return d.start(task, cfg) + warning, nil
}

// Cancel stops the most recently started non-terminal task of the channel.
// It reports false when there is nothing to cancel.
func (d *Dispatcher) Cancel(channelID string) bool {
	d.mu.Lock()
	current := append([]*TaskExecution(nil), d.running[channelID]...)
	d.mu.Unlock()

	for i := len(current) - 1; i >= 0; i-- {
		task := current[i]
		task.mu.Lock()
		if !task.transitionLocked(StatusCancelled) {
			task.mu.Unlock()
			continue
		}
		cancel, thread := task.cancel, task.threadTS
		task.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		d.release(task)
		if thread != "" {
			d.postThread(channelID, thread, notify.Cancelled)
		}
		log.WithTask(channelID, task.ID).Info("task cancelled")
		return true
	}
	return false
}

// HasRunning reports whether the channel has a task in the running registry.
func (d *Dispatcher) HasRunning(channelID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.running[channelID]) > 0
}

// GetRunning returns the most recently started task of the channel.
func (d *Dispatcher) GetRunning(channelID string) (Snapshot, bool) {
	d.mu.Lock()
	current := d.running[channelID]
	var task *TaskExecution
	if len(current) > 0 {
		task = current[len(current)-1]
	}
	d.mu.Unlock()
	if task == nil {
		return Snapshot{}, false
	}
	return task.Snapshot(), true
}

// Running lists every task in the channel's running registry, oldest first.
func (d *Dispatcher) Running(channelID string) []Snapshot {
	d.mu.Lock()
	current := append([]*TaskExecution(nil), d.running[channelID]...)
	d.mu.Unlock()
	return snapshots(current)
}

// Pending lists the channel's queue in promotion order.
func (d *Dispatcher) Pending(channelID string) []Snapshot {
	d.mu.Lock()
	queue := append([]*TaskExecution(nil), d.pending[channelID]...)
	d.mu.Unlock()
	return snapshots(queue)
}

// Channels returns the sorted ids of channels with running or pending work.
func (d *Dispatcher) Channels() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make(map[string]struct{}, len(d.running)+len(d.pending))
	var out []string
	for _, m := range []map[string][]*TaskExecution{d.running, d.pending} {
		for ch, tasks := range m {
			if _, ok := seen[ch]; ok || len(tasks) == 0 {
				continue
			}
			seen[ch] = struct{}{}
			out = append(out, ch)
		}
	}
	slices.Sort(out)
	return out
}

// Shutdown stops admitting work, cancels every running pipeline, drops the
// pending queues and waits for pipelines to exit or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	var dropped []*TaskExecution
	for ch, queue := range d.pending {
		dropped = append(dropped, queue...)
		delete(d.pending, ch)
	}
	d.updateDepthLocked()
	d.mu.Unlock()

	for _, task := range dropped {
		task.mu.Lock()
		if task.transitionLocked(StatusCancelled) {
			task.lastError = msgShutdownQueue
		}
		task.mu.Unlock()
		d.recordTerminal(task.Snapshot(), history.StatusCancelled)
	}

	d.stop()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pipelines: %w", ctx.Err())
	}
}

// busyWithLocked returns the most recently started running task, or the head
// of the queue when the slot is free but promotion has not happened yet.
// It returns nil when the channel is idle. Callers hold d.mu.
func (d *Dispatcher) busyWithLocked(channelID string) *TaskExecution {
	if current := d.running[channelID]; len(current) > 0 {
		return current[len(current)-1]
	}
	if queue := d.pending[channelID]; len(queue) > 0 {
		return queue[0]
	}
	return nil
}

// reserveLocked claims a running slot. Callers hold d.mu.
func (d *Dispatcher) reserveLocked(task *TaskExecution) {
	d.running[task.ChannelID] = append(d.running[task.ChannelID], task)
	d.wg.Add(1)
	d.updateDepthLocked()
}

// release removes task from the running registry. It reports whether the task was present.
func (d *Dispatcher) release(task *TaskExecution) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	current := d.running[task.ChannelID]
	for i, t := range current {
		if t != task {
			continue
		}
		current = append(current[:i:i], current[i+1:]...)
		if len(current) == 0 {
			delete(d.running, task.ChannelID)
		} else {
			d.running[task.ChannelID] = current
		}
		d.updateDepthLocked()
		return true
	}
	return false
}

func (d *Dispatcher) updateDepthLocked() {
	if d.deps.Metrics == nil {
		return
	}
	running, pending := 0, 0
	for _, tasks := range d.running {
		running += len(tasks)
	}
	for _, tasks := range d.pending {
		pending += len(tasks)
	}
	d.deps.Metrics.SetQueueDepth(running, pending)
}

// start opens the task thread and hands the task to a pipeline goroutine.
// The task already holds a running slot.
func (d *Dispatcher) start(task *TaskExecution, cfg config.ChannelConfig) string {
	logger := log.WithTask(task.ChannelID, task.ID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.baseCtx), notifyTimeout)
	threadTS, err := d.deps.Notifier.PostNew(ctx, task.ChannelID, notify.ThreadHeader(cfg.ChannelName, task.Description))
	cancel()
	if err != nil {
		logger.Error("failed to create task thread", "error", err)
		task.fail(fmt.Sprintf("failed to create thread: %v", err))
		d.finish(task)
		return msgThreadFailed
	}

	branch := gitops.BranchName(cfg.BranchPrefix, cfg.ChannelName, task.ID)
	taskCtx, taskCancel := context.WithCancel(d.baseCtx)

	task.mu.Lock()
	task.threadTS = threadTS
	if !task.transitionLocked(StatusRunning) {
		task.mu.Unlock()
		taskCancel()
		d.postThread(task.ChannelID, threadTS, notify.Cancelled)
		d.finish(task)
		return notify.Cancelled
	}
	task.branch = branch
	task.startedAt = d.now()
	task.cancel = taskCancel
	task.mu.Unlock()

	d.bookkeep(func(ctx context.Context) error {
		if d.deps.History == nil {
			return nil
		}
		return d.deps.History.MarkRunning(ctx, task.ID, branch, threadTS)
	}, logger, "mark running")
	d.publish(events.TaskStarted, task.Snapshot(), 0)
	d.postThread(task.ChannelID, threadTS, notify.Starting(task.Model, branch))
	logger.Info("task started", "branch", branch, "model", task.Model)

	go d.run(taskCtx, taskCancel, task, cfg)
	return starting(task.Model)
}

// run executes the pipeline on a worker slot and always finishes the task.
func (d *Dispatcher) run(ctx context.Context, cancel context.CancelFunc, task *TaskExecution, cfg config.ChannelConfig) {
	logger := log.WithTask(task.ChannelID, task.ID)
	defer d.finish(task)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic", "panic", r)
			d.failTask(task, cfg, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.observeCancel(task)
		return
	}
	defer d.sem.Release(1)

	d.execute(ctx, task, cfg, logger)
}

// finish records the terminal state, frees the slot and promotes the next queued task.
func (d *Dispatcher) finish(task *TaskExecution) {
	if task.fail("pipeline exited without a result") {
		log.WithTask(task.ChannelID, task.ID).Error("pipeline exited without a terminal state")
	}
	d.release(task)

	snap := task.Snapshot()
	status := historyStatus(snap.Status)
	d.recordTerminal(snap, status)

	d.promote(task.ChannelID)
	d.wg.Done()
}

// promote starts the next queued task once the channel's running registry is empty.
// Entries whose channel lost its configuration are dropped with a channel notice.
func (d *Dispatcher) promote(channelID string) {
	for {
		d.mu.Lock()
		if d.closed || len(d.running[channelID]) > 0 || len(d.pending[channelID]) == 0 {
			d.mu.Unlock()
			return
		}
		next := d.pending[channelID][0]
		d.pending[channelID] = d.pending[channelID][1:]
		if len(d.pending[channelID]) == 0 {
			delete(d.pending, channelID)
		}

		cfg, ok := d.deps.Channels.Get(channelID)
		if !ok {
			d.updateDepthLocked()
			d.mu.Unlock()
			d.drop(next)
			continue
		}
		d.reserveLocked(next)
		d.mu.Unlock()

		log.WithTask(channelID, next.ID).Info("promoting queued task")
		d.start(next, cfg)
		return
	}
}

// drop discards a queued task whose channel is no longer configured.
func (d *Dispatcher) drop(task *TaskExecution) {
	logger := log.WithTask(task.ChannelID, task.ID)
	logger.Warn("dropping queued task: channel no longer configured")

	task.fail("channel no longer configured")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.baseCtx), notifyTimeout)
	if _, err := d.deps.Notifier.PostNew(ctx, task.ChannelID, fmt.Sprintf(msgDropped, task.Description)); err != nil {
		logger.Warn("failed to post drop notice", "error", err)
	}
	cancel()

	d.recordTerminal(task.Snapshot(), history.StatusDropped)
}

// checkBudget returns the warning suffix for the ack and whether the budget is exhausted.
// Budget lookup errors never block a submission.
func (d *Dispatcher) checkBudget(ctx context.Context) (string, bool) {
	percent, err := d.deps.Costs.BudgetPercent(ctx)
	if err != nil {
		d.logger.Warn("budget lookup failed", "error", err)
		return "", false
	}
	if percent >= 100 {
		return "", true
	}
	if percent >= d.opts.WarnPercent {
		return budgetWarning(percent), false
	}
	return "", false
}

func (d *Dispatcher) postThread(channelID, thread, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.baseCtx), notifyTimeout)
	defer cancel()
	if _, err := d.deps.Notifier.PostToThread(ctx, channelID, thread, text); err != nil {
		log.WithChannel(channelID).Warn("failed to post to thread", "thread", thread, "error", err)
	}
}

func (d *Dispatcher) createHistory(task *TaskExecution) {
	d.bookkeep(func(ctx context.Context) error {
		if d.deps.History == nil {
			return nil
		}
		return d.deps.History.Create(ctx, history.CreateRequest{
			ID:          task.ID,
			ChannelID:   task.ChannelID,
			Description: task.Description,
			Model:       task.Model,
			Requester:   task.Requester,
			Status:      history.StatusPending,
		})
	}, log.WithTask(task.ChannelID, task.ID), "create history")
}

func (d *Dispatcher) recordQueued(task *TaskExecution, position int) {
	d.deps.Metrics.Admission(metrics.AdmitQueued)
	d.createHistory(task)
	d.publish(events.TaskQueued, task.Snapshot(), position)
	log.WithTask(task.ChannelID, task.ID).Info("task queued", "position", position)
}

func (d *Dispatcher) recordTerminal(snap Snapshot, status history.Status) {
	logger := log.WithTask(snap.ChannelID, snap.ID)
	d.bookkeep(func(ctx context.Context) error {
		if d.deps.History == nil {
			return nil
		}
		return d.deps.History.Complete(ctx, snap.ID, history.Outcome{
			Status:    status,
			PRURL:     snap.PRURL,
			DiffStats: snap.DiffStats,
			CostUSD:   snap.CostUSD,
			LastError: snap.Error,
		})
	}, logger, "complete history")

	var elapsed time.Duration
	if !snap.StartedAt.IsZero() {
		elapsed = d.now().Sub(snap.StartedAt)
	}
	d.deps.Metrics.Finished(string(status), elapsed)

	eventType := events.TaskFailed
	switch status {
	case history.StatusCompleted:
		eventType = events.TaskCompleted
	case history.StatusCancelled:
		eventType = events.TaskCancelled
	case history.StatusDropped:
		eventType = events.TaskDropped
	}
	d.publish(eventType, snap, 0)
	logger.Info("task finished", "status", status, "duration", elapsed)
}

func (d *Dispatcher) publish(eventType string, snap Snapshot, position int) {
	if d.deps.Events == nil {
		return
	}
	payload := events.TaskPayload{
		TaskID:      snap.ID,
		ChannelID:   snap.ChannelID,
		Description: snap.Description,
		Model:       snap.Model,
		Branch:      snap.Branch,
		Position:    position,
		PRURL:       snap.PRURL,
		CostUSD:     snap.CostUSD,
		Error:       snap.Error,
	}
	if !snap.StartedAt.IsZero() && snap.Status.Terminal() {
		payload.DurationMS = d.now().Sub(snap.StartedAt).Milliseconds()
	}
	d.deps.Events.Publish(eventType, payload)
}

// bookkeep runs a persistence call detached from any task context and logs failures.
func (d *Dispatcher) bookkeep(fn func(ctx context.Context) error, logger *slog.Logger, what string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.baseCtx), notifyTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("task bookkeeping failed", "op", what, "error", err)
	}
}

func historyStatus(s Status) history.Status {
	switch s {
	case StatusCompleted:
		return history.StatusCompleted
	case StatusCancelled:
		return history.StatusCancelled
	default:
		return history.StatusFailed
	}
}

func snapshots(tasks []*TaskExecution) []Snapshot {
	out := make([]Snapshot, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Snapshot())
	}
	return out
}
