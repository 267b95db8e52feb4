// Package runner invokes the code-generation CLI against a checkout.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattjoyce/slackagent/internal/log"
	"github.com/mattjoyce/slackagent/internal/notify"
	"github.com/mattjoyce/slackagent/internal/proc"
)

const (
	defaultTimeout  = 30 * time.Minute
	maxErrorOutput  = 4000
	defaultBinary   = "claude"
	systemPromptArg = "--append-system-prompt"
)

// ErrTimeout is returned when generation outlives its timeout.
var ErrTimeout = errors.New("code generation timed out")

// Request describes one generation run.
type Request struct {
	Dir          string
	Model        string // full model identifier
	Prompt       string
	SystemPrompt string
	Timeout      time.Duration
}

// Result is the captured output of a successful run.
type Result struct {
	Output   string
	Duration time.Duration
}

// ExitError reports a non-zero exit of the CLI along with what it printed.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	out := notify.Truncate(strings.TrimSpace(e.Output), maxErrorOutput)
	if out == "" {
		return fmt.Sprintf("code generation exited with status %d", e.Code)
	}
	return fmt.Sprintf("code generation exited with status %d: %s", e.Code, out)
}

// Runner spawns the CLI. Each Run owns its process; cancellation of ctx
// terminates the process group.
type Runner struct {
	binary string
	grace  time.Duration
	logger *slog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithGracePeriod overrides the SIGTERM to SIGKILL delay.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) { r.grace = d }
}

// New creates a Runner for the binary at path ("claude" when empty).
func New(path string, opts ...Option) *Runner {
	if path == "" {
		path = defaultBinary
	}
	r := &Runner{
		binary: path,
		grace:  proc.DefaultGracePeriod,
		logger: log.WithComponent("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Args builds the CLI argument list for req.
func Args(req Request) []string {
	args := []string{"--print", "--model", req.Model}
	if req.SystemPrompt != "" {
		args = append(args, systemPromptArg, req.SystemPrompt)
	}
	return append(args, req.Prompt)
}

// Run executes the CLI in req.Dir and returns its combined output.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, errors.New("prompt is empty")
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r.logger.Debug("starting code generation", "dir", req.Dir, "model", req.Model, "timeout", timeout)
	res, err := proc.Run(ctx, proc.Spec{
		Name:    r.binary,
		Args:    Args(req),
		Dir:     req.Dir,
		Timeout: timeout,
		Grace:   r.grace,
	}, r.logger)

	switch {
	case err == nil:
	case res.TimedOut:
		return Result{Duration: res.Duration}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case res.Cancelled:
		return Result{Duration: res.Duration}, err
	case res.ExitCode > 0:
		return Result{Duration: res.Duration}, &ExitError{Code: res.ExitCode, Output: res.Output}
	default:
		return Result{Duration: res.Duration}, fmt.Errorf("run code generation: %w", err)
	}

	// A clean exit is success even when nothing was printed.
	out := strings.TrimSpace(res.Output)
	r.logger.Debug("code generation finished", "dir", req.Dir, "duration", res.Duration, "output_bytes", len(out))
	return Result{Output: out, Duration: res.Duration}, nil
}
