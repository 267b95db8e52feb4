package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mattjoyce/slackagent/internal/config"
	"github.com/mattjoyce/slackagent/internal/cost"
	"github.com/mattjoyce/slackagent/internal/notify"
	"github.com/mattjoyce/slackagent/internal/runner"
)

const (
	commitPrefix  = "feat: "
	prBodyPreface = "Automated PR from Slack agent\n\n"
	costUnknown   = "unavailable"
)

// execute carries a RUNNING task to a terminal state. Only code generation is
// fatal; git, test and PR problems are reported as data.
func (d *Dispatcher) execute(ctx context.Context, task *TaskExecution, cfg config.ChannelConfig, logger *slog.Logger) {
	task.mu.Lock()
	branch := task.branch
	task.mu.Unlock()
	repo := cfg.ClonePath

	d.step("branch", func() {
		if !d.deps.Repo.CreateBranch(ctx, repo, branch, cfg.PRTarget) {
			logger.Warn("branch creation failed, continuing on current checkout", "branch", branch)
		}
	})

	d.step("setup", func() {
		for _, command := range cfg.SetupCommands {
			if ctx.Err() != nil {
				return
			}
			if !d.deps.Repo.RunCommand(ctx, repo, command, d.opts.Timeouts.Setup) {
				logger.Warn("setup command failed", "command", command)
			}
		}
	})
	if ctx.Err() != nil {
		d.observeCancel(task)
		return
	}

	req := d.generationRequest(task, cfg, logger)
	var (
		result runner.Result
		genErr error
	)
	d.step("generate", func() {
		result, genErr = d.deps.Generator.Run(ctx, req)
	})
	if genErr != nil {
		if ctx.Err() != nil && !errors.Is(genErr, runner.ErrTimeout) {
			d.observeCancel(task)
			return
		}
		logger.Error("code generation failed", "error", genErr)
		d.failTask(task, cfg, genErr.Error())
		return
	}

	var diffStats, tests string
	d.step("diff", func() { diffStats = d.deps.Repo.DiffStats(ctx, repo, cfg.PRTarget) })
	d.step("tests", func() { tests = d.deps.Repo.RunTests(ctx, repo, cfg.TestCommand) })
	if ctx.Err() != nil {
		d.observeCancel(task)
		return
	}

	var prURL string
	d.step("publish", func() {
		if !d.deps.Repo.CommitAll(ctx, repo, commitPrefix+task.Description) {
			logger.Warn("commit failed")
		}
		if !d.deps.Repo.Push(ctx, repo, branch) {
			logger.Warn("push failed", "branch", branch)
		}
		url, ok := d.deps.Repo.CreatePR(ctx, repo, task.Description, prBodyPreface+result.Output, cfg.PRTarget)
		if ok {
			prURL = url
		} else {
			logger.Warn("pull request creation failed")
		}
	})
	if ctx.Err() != nil {
		d.observeCancel(task)
		return
	}

	costText, costUSD := d.recordCost(task, result.Output, logger)

	task.mu.Lock()
	if !task.transitionLocked(StatusCompleted) {
		task.mu.Unlock()
		return
	}
	task.prURL = prURL
	task.diffStats = diffStats
	task.costUSD = costUSD
	thread := task.threadTS
	task.mu.Unlock()

	d.postThread(task.ChannelID, thread, notify.Completed(notify.Completion{
		Summary:   result.Output,
		Cost:      costText,
		DiffStats: diffStats,
		Tests:     tests,
		PRURL:     prURL,
	}))
}

// generationRequest resolves the model identifier and the channel profile.
// A profile's execution cap can only shorten the configured generation timeout.
func (d *Dispatcher) generationRequest(task *TaskExecution, cfg config.ChannelConfig, logger *slog.Logger) runner.Request {
	req := runner.Request{
		Dir:     cfg.ClonePath,
		Model:   d.opts.ResolveModel(task.Model),
		Prompt:  task.Description,
		Timeout: d.opts.Timeouts.Generation,
	}
	if cfg.Profile == "" || d.deps.Profiles == nil {
		return req
	}
	p, err := d.deps.Profiles.Load(cfg.Profile)
	if err != nil {
		logger.Warn("failed to load profile", "profile", cfg.Profile, "error", err)
		return req
	}
	req.SystemPrompt = p.SystemPrompt
	if limit := p.MaxExecution(); limit > 0 && limit < req.Timeout {
		req.Timeout = limit
	}
	return req
}

// recordCost stores the size-based token estimate. A storage failure leaves
// the task completed with the cost marked unavailable.
func (d *Dispatcher) recordCost(task *TaskExecution, output string, logger *slog.Logger) (string, float64) {
	in, out := cost.EstimateTokens(task.Description, output)
	var (
		entry cost.Entry
		err   error
	)
	d.bookkeep(func(ctx context.Context) error {
		entry, err = d.deps.Costs.Record(ctx, task.ChannelID, task.ID, task.Model, in, out)
		return err
	}, logger, "record cost")
	if err != nil {
		return costUnknown, 0
	}
	d.deps.Metrics.AddCost(entry.CostUSD)
	return d.deps.Costs.FormatSummary(entry), entry.CostUSD
}

// failTask moves the task to FAILED and posts the single failure notice.
func (d *Dispatcher) failTask(task *TaskExecution, cfg config.ChannelConfig, errText string) {
	if !task.fail(errText) {
		return
	}
	if thread := task.thread(); thread != "" {
		d.postThread(task.ChannelID, thread, notify.Failed(errText, string(cfg.OnFailure)))
	}
}

// observeCancel handles a pipeline that saw its context end. An explicit
// Cancel already posted the notice; shutdown has not.
func (d *Dispatcher) observeCancel(task *TaskExecution) {
	task.mu.Lock()
	if !task.transitionLocked(StatusCancelled) {
		task.mu.Unlock()
		return
	}
	thread := task.threadTS
	task.mu.Unlock()
	if thread != "" {
		d.postThread(task.ChannelID, thread, notify.Cancelled)
	}
}

func (d *Dispatcher) step(name string, fn func()) {
	started := time.Now()
	fn()
	d.deps.Metrics.ObserveStep(name, time.Since(started))
}
