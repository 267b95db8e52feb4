package gitops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/slackagent/internal/log"
	"github.com/mattjoyce/slackagent/internal/proc"
)

const (
	defaultGitTimeout   = 60 * time.Second
	defaultPRTimeout    = 60 * time.Second
	defaultTestsTimeout = 5 * time.Minute
	diffTimeout         = 30 * time.Second
	cloneTimeout        = 5 * time.Minute
)

// Timeouts bounds each class of repository command.
type Timeouts struct {
	Git   time.Duration
	PR    time.Duration
	Tests time.Duration
}

// Operator runs git and gh against a local checkout. Every command runs in its
// own process group under a timeout.
type Operator struct {
	gitPath  string
	ghPath   string
	timeouts Timeouts
	logger   *slog.Logger
}

// Option customizes an Operator.
type Option func(*Operator)

// WithBinaries overrides the git and gh executables.
func WithBinaries(git, gh string) Option {
	return func(o *Operator) {
		if git != "" {
			o.gitPath = git
		}
		if gh != "" {
			o.ghPath = gh
		}
	}
}

// New creates an Operator. Zero timeouts take the defaults.
func New(t Timeouts, opts ...Option) *Operator {
	if t.Git <= 0 {
		t.Git = defaultGitTimeout
	}
	if t.PR <= 0 {
		t.PR = defaultPRTimeout
	}
	if t.Tests <= 0 {
		t.Tests = defaultTestsTimeout
	}
	o := &Operator{
		gitPath:  "git",
		ghPath:   "gh",
		timeouts: t,
		logger:   log.WithComponent("gitops"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateBranch checks out base and creates name from it.
func (o *Operator) CreateBranch(ctx context.Context, path, name, base string) bool {
	if _, err := o.git(ctx, path, "checkout", base); err != nil {
		o.logger.Warn("checkout base branch failed", "path", path, "base", base, "error", err)
	}
	if _, err := o.git(ctx, path, "checkout", "-b", name); err != nil {
		o.logger.Error("create branch failed", "path", path, "branch", name, "error", err)
		return false
	}
	return true
}

// RunCommand runs a shell command in path.
func (o *Operator) RunCommand(ctx context.Context, path, command string, timeout time.Duration) bool {
	res, err := proc.Run(ctx, proc.Shell(path, command, timeout), o.logger)
	if err != nil {
		o.logger.Warn("command failed", "path", path, "command", command, "exit_code", res.ExitCode,
			"error", err, "output", tail(res.Output, 2000))
		return false
	}
	return true
}

// DiffStats summarizes the branch against base. Errors yield "unknown".
func (o *Operator) DiffStats(ctx context.Context, path, base string) string {
	res, err := proc.Run(ctx, proc.Spec{
		Name:    o.gitPath,
		Args:    []string{"diff", "--stat", base + "..HEAD"},
		Dir:     path,
		Timeout: diffTimeout,
	}, o.logger)
	if err != nil {
		o.logger.Warn("diff stat failed", "path", path, "base", base, "error", err)
		return "unknown"
	}
	return ParseDiffStats(res.Output)
}

// RunTests runs the channel's test command and returns a human-readable summary.
func (o *Operator) RunTests(ctx context.Context, path, command string) string {
	res, err := proc.Run(ctx, proc.Shell(path, command, o.timeouts.Tests), o.logger)
	switch {
	case err == nil:
		return SummarizeTestOutput(res.Output)
	case res.TimedOut:
		return fmt.Sprintf("Tests timed out after %s", o.timeouts.Tests)
	case res.Cancelled:
		return "Tests cancelled"
	case res.ExitCode > 0:
		return "Tests failed:\n" + res.Output
	default:
		return "Failed to run tests: " + err.Error()
	}
}

// CommitAll stages everything and commits.
func (o *Operator) CommitAll(ctx context.Context, path, message string) bool {
	if _, err := o.git(ctx, path, "add", "-A"); err != nil {
		o.logger.Error("stage changes failed", "path", path, "error", err)
		return false
	}
	if _, err := o.git(ctx, path, "commit", "-m", message); err != nil {
		o.logger.Error("commit failed", "path", path, "error", err)
		return false
	}
	return true
}

// Push pushes branch to origin and sets upstream.
func (o *Operator) Push(ctx context.Context, path, branch string) bool {
	if _, err := o.git(ctx, path, "push", "-u", "origin", branch); err != nil {
		o.logger.Error("push failed", "path", path, "branch", branch, "error", err)
		return false
	}
	return true
}

// CreatePR opens a pull request with gh and returns its URL.
func (o *Operator) CreatePR(ctx context.Context, path, title, body, target string) (string, bool) {
	res, err := proc.Run(ctx, proc.Spec{
		Name:    o.ghPath,
		Args:    []string{"pr", "create", "--title", title, "--body", body, "--base", target},
		Dir:     path,
		Timeout: o.timeouts.PR,
	}, o.logger)
	if err != nil {
		// gh exits non-zero when the PR already exists but still prints its URL.
		if strings.Contains(res.Output, "already exists") {
			if url := extractPRURL(res.Output); url != "" {
				return url, true
			}
		}
		o.logger.Error("create PR failed", "path", path, "error", err, "output", tail(res.Output, 2000))
		return "", false
	}
	if url := extractPRURL(res.Output); url != "" {
		return url, true
	}
	return strings.TrimSpace(res.Output), true
}

// EnsureClone clones repoURL into path when it is not already a checkout,
// otherwise fetches and fast-forwards base.
func (o *Operator) EnsureClone(ctx context.Context, repoURL, path, base string) error {
	if IsRepo(path) {
		if _, err := o.git(ctx, path, "fetch", "origin"); err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		if _, err := o.git(ctx, path, "checkout", base); err != nil {
			return fmt.Errorf("checkout %s: %w", base, err)
		}
		if _, err := o.git(ctx, path, "pull", "--ff-only", "origin", base); err != nil {
			return fmt.Errorf("pull %s: %w", base, err)
		}
		return nil
	}
	if repoURL == "" {
		return errors.New("clone path is not a git repository and no repo url is configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	res, err := proc.Run(ctx, proc.Spec{
		Name:    o.gitPath,
		Args:    []string{"clone", repoURL, path},
		Timeout: cloneTimeout,
	}, o.logger)
	if err != nil {
		return fmt.Errorf("clone %s: %w: %s", repoURL, err, tail(res.Output, 500))
	}
	return nil
}

// IsRepo reports whether path contains a .git entry.
func IsRepo(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

func (o *Operator) git(ctx context.Context, path string, args ...string) (string, error) {
	res, err := proc.Run(ctx, proc.Spec{
		Name:    o.gitPath,
		Args:    args,
		Dir:     path,
		Timeout: o.timeouts.Git,
	}, o.logger)
	if err != nil {
		return res.Output, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(tail(res.Output, 500)))
	}
	return res.Output, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
